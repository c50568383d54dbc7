// Package session keeps the ordered list of source documents a front end
// edits before combining them.
//
// Every command validates before it changes anything: a rejected page range
// or rotation leaves the entry as it was. Page ranges and rotations are
// checked against the document each time they are set, and again by the
// engine when the combine runs.
package session

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lakshan-sameera/pdfcombiner"
	"github.com/lakshan-sameera/pdfcombiner/access"
	"github.com/lakshan-sameera/pdfcombiner/assemble"
	"github.com/lakshan-sameera/pdfcombiner/pagerange"
)

// Session is the editable source list. It is not safe for concurrent use.
type Session struct {
	entries []pdfcombiner.SourceEntry
	removed *removal // one level of undo

	opener         *access.Opener
	logger         *slog.Logger
	resetOnSuccess bool
}

type removal struct {
	entry pdfcombiner.SourceEntry
	index int
}

// Option configures a Session.
type Option func(*Session)

// WithOpener sets the opener used to inspect sources.
func WithOpener(o *access.Opener) Option {
	return func(s *Session) { s.opener = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithResetOnSuccess clears the source list after a successful combine.
func WithResetOnSuccess(reset bool) Option {
	return func(s *Session) { s.resetOnSuccess = reset }
}

// New returns an empty session.
func New(opts ...Option) *Session {
	s := &Session{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	if s.opener == nil {
		s.opener = access.New(nil, access.WithLogger(s.logger))
	}
	return s
}

// Entries returns a copy of the source list.
func (s *Session) Entries() []pdfcombiner.SourceEntry {
	out := make([]pdfcombiner.SourceEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

// Len returns the number of sources.
func (s *Session) Len() int { return len(s.entries) }

// Add appends the PDF files among paths that are not in the list yet and
// returns how many were added. Paths are compared in absolute, cleaned
// form; files without a .pdf extension are skipped.
func (s *Session) Add(paths ...string) int {
	s.removed = nil
	added := 0
	for _, p := range paths {
		if !strings.EqualFold(filepath.Ext(p), ".pdf") {
			s.logger.Debug("skipping non-PDF file", "path", p)
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		if s.index(abs) >= 0 {
			continue
		}
		s.entries = append(s.entries, pdfcombiner.SourceEntry{Path: abs})
		added++
	}
	return added
}

func (s *Session) index(path string) int {
	return slices.IndexFunc(s.entries, func(e pdfcombiner.SourceEntry) bool { return e.Path == path })
}

func (s *Session) check(i int) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("session: %w: %d of %d", pdfcombiner.ErrNoSelection, i, len(s.entries))
	}
	return nil
}

// Remove takes out the entry at i and remembers it for Undo.
func (s *Session) Remove(i int) (pdfcombiner.SourceEntry, error) {
	if err := s.check(i); err != nil {
		return pdfcombiner.SourceEntry{}, err
	}
	e := s.entries[i]
	s.entries = slices.Delete(s.entries, i, i+1)
	s.removed = &removal{entry: e, index: i}
	return e.Clone(), nil
}

// Undo puts the most recently removed entry back at its old position. It
// reports false when there is nothing to undo. Any command other than
// Remove discards the undo slot.
func (s *Session) Undo() (pdfcombiner.SourceEntry, bool) {
	if s.removed == nil {
		return pdfcombiner.SourceEntry{}, false
	}
	r := s.removed
	s.removed = nil
	at := min(r.index, len(s.entries))
	s.entries = slices.Insert(s.entries, at, r.entry)
	return r.entry.Clone(), true
}

// CanUndo reports whether Undo has an entry to restore.
func (s *Session) CanUndo() bool { return s.removed != nil }

// MoveUp swaps the entry at i with the one before it. The first entry stays
// in place.
func (s *Session) MoveUp(i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	s.removed = nil
	if i > 0 {
		s.entries[i-1], s.entries[i] = s.entries[i], s.entries[i-1]
	}
	return nil
}

// MoveDown swaps the entry at i with the one after it. The last entry stays
// in place.
func (s *Session) MoveDown(i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	s.removed = nil
	if i < len(s.entries)-1 {
		s.entries[i+1], s.entries[i] = s.entries[i], s.entries[i+1]
	}
	return nil
}

// PageCount opens the source at i and returns its page count.
func (s *Session) PageCount(i int) (int, error) {
	if err := s.check(i); err != nil {
		return 0, err
	}
	doc, err := s.opener.Open(s.entries[i].Path)
	if err != nil {
		return 0, err
	}
	defer doc.Close()
	return doc.NumPages(), nil
}

// SetPageRange validates spec against the source at i and stores it. An
// empty spec selects every page.
func (s *Session) SetPageRange(i int, spec string) error {
	n, err := s.PageCount(i)
	if err != nil {
		return err
	}
	if _, err := pagerange.Parse(spec, n); err != nil {
		return pdfcombiner.NewPDFError("pages", s.entries[i].Path, err)
	}
	s.entries[i].PageRange = strings.TrimSpace(spec)
	return nil
}

// ClearPageRange resets the entry at i to every page.
func (s *Session) ClearPageRange(i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	s.entries[i].PageRange = ""
	return nil
}

// SetRotation validates and stores a rotation for the source at i,
// replacing any previous one. pages is "all" or a page range spec.
func (s *Session) SetRotation(i, angle int, pages string) error {
	spec := pdfcombiner.RotationSpec{Angle: angle, Pages: strings.TrimSpace(pages)}
	if err := spec.Validate(); err != nil {
		return err
	}
	n, err := s.PageCount(i)
	if err != nil {
		return err
	}
	if _, err := pagerange.Targets(spec, n); err != nil {
		return pdfcombiner.NewPDFError("rotate", s.entries[i].Path, err)
	}
	s.entries[i].Rotation = &spec
	return nil
}

// ClearRotation removes the rotation of the entry at i.
func (s *Session) ClearRotation(i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	s.entries[i].Rotation = nil
	return nil
}

// Preview opens the source at i and returns its document information,
// with dates stripped of their "D:" prefix.
func (s *Session) Preview(i int) (pdfcombiner.Metadata, error) {
	if err := s.check(i); err != nil {
		return pdfcombiner.Metadata{}, err
	}
	doc, err := s.opener.Open(s.entries[i].Path)
	if err != nil {
		return pdfcombiner.Metadata{}, err
	}
	defer doc.Close()

	info := doc.Info()
	return pdfcombiner.Metadata{
		Title:        info.Title,
		Author:       info.Author,
		Subject:      info.Subject,
		Creator:      info.Creator,
		Producer:     info.Producer,
		Keywords:     info.Keywords,
		CreationDate: pdfcombiner.StripDatePrefix(info.CreationDate),
		ModDate:      pdfcombiner.StripDatePrefix(info.ModDate),
	}, nil
}

// Reset empties the session.
func (s *Session) Reset() {
	s.entries = nil
	s.removed = nil
}

// Combine runs engine over the current sources. On failure the entries are
// left as they were.
func (s *Session) Combine(engine *assemble.Engine, meta pdfcombiner.Metadata, password, outputPath string) (string, error) {
	s.removed = nil
	out, err := engine.Combine(s.Entries(), meta, password, outputPath)
	if err != nil {
		return "", err
	}
	if s.resetOnSuccess {
		s.entries = nil
	}
	return out, nil
}
