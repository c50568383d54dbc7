package mcp

import (
	"path/filepath"

	"github.com/lakshan-sameera/pdfcombiner/access"
)

// candidatePrompt answers password prompts from the passwords supplied with
// a tool call. The opener reports which document it is unlocking through
// observe, and each prompt for it takes the next candidate. A document
// without candidates left gets no input.
type candidatePrompt struct {
	candidates map[string][]string
	current    string
}

// load replaces the candidates. Keys are made absolute to match the paths
// held by the session.
func (p *candidatePrompt) load(passwords map[string][]string) {
	p.candidates = make(map[string][]string, len(passwords))
	for path, pws := range passwords {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		p.candidates[path] = append(p.candidates[path], pws...)
	}
	p.current = ""
}

func (p *candidatePrompt) observe(path string, state access.State) {
	if state == access.Locked {
		p.current = path
		if abs, err := filepath.Abs(path); err == nil {
			p.current = abs
		}
	}
}

func (p *candidatePrompt) Password(string) (string, bool) {
	pws := p.candidates[p.current]
	if len(pws) == 0 {
		return "", false
	}
	p.candidates[p.current] = pws[1:]
	return pws[0], true
}
