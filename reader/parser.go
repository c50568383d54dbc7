package reader

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// maxDepth bounds the nesting of arrays and dictionaries.
const maxDepth = 256

// Byte classes of the PDF lexical grammar.
const (
	regular byte = iota
	space
	delim
)

var class [256]byte

func init() {
	for _, c := range []byte(" \t\n\r\f\x00") {
		class[c] = space
	}
	for _, c := range []byte("()<>[]{}/%") {
		class[c] = delim
	}
}

func isWhitespace(b byte) bool { return class[b] == space }
func isDelimiter(b byte) bool  { return class[b] == delim }

// SyntaxError reports malformed PDF syntax. Offset is relative to the start
// of the file.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("reader: syntax error at offset %d: %s", e.Offset, e.Msg)
}

// parser is a recursive descent parser for PDF syntax.
type parser struct {
	data  []byte
	pos   int
	base  int // file offset of data[0]
	depth int

	// decrypt, when set, is applied to every string and stream body in the
	// order they appear in the object.
	decrypt func([]byte) []byte

	// length resolves an indirect stream /Length.
	length func(Reference) (int, bool)
}

func newParser(data []byte) *parser {
	return &parser{data: data}
}

// newParserAt parses file starting at offset. Errors carry file offsets.
func newParserAt(file []byte, offset int) *parser {
	return &parser{data: file[offset:], base: offset}
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.base + p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool { return p.pos >= len(p.data) }

// skipWhitespace advances past whitespace and comments.
func (p *parser) skipWhitespace() {
	for !p.eof() {
		switch c := p.data[p.pos]; {
		case class[c] == space:
			p.pos++
		case c == '%':
			for !p.eof() && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
		default:
			return
		}
	}
}

// readToken reads the next run of regular characters.
func (p *parser) readToken() string {
	p.skipWhitespace()
	start := p.pos
	for !p.eof() && class[p.data[p.pos]] == regular {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// keyword consumes kw if it is the next token.
func (p *parser) keyword(kw string) bool {
	p.skipWhitespace()
	rest := p.data[p.pos:]
	if !bytes.HasPrefix(rest, []byte(kw)) {
		return false
	}
	if len(rest) > len(kw) && class[rest[len(kw)]] == regular {
		return false
	}
	p.pos += len(kw)
	return true
}

// readInt reads a token that must be a non-negative integer.
func (p *parser) readInt(what string) (int, error) {
	tok := p.readToken()
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return 0, p.errorf("expected %s, got %q", what, tok)
	}
	return n, nil
}

// ParseObject parses the next PDF object from the current position.
func (p *parser) ParseObject() (Object, error) {
	p.skipWhitespace()
	if p.eof() {
		return nil, io.ErrUnexpectedEOF
	}

	switch c := p.data[p.pos]; {
	case c == '<':
		if p.pos+1 < len(p.data) && p.data[p.pos+1] == '<' {
			return p.parseDict()
		}
		return p.parseHexString()
	case c == '(':
		return p.parseLiteralString()
	case c == '/':
		return p.parseName()
	case c == '[':
		return p.parseArray()
	case c == 't', c == 'f', c == 'n':
		return p.parseKeyword()
	case c >= '0' && c <= '9', c == '+', c == '-', c == '.':
		return p.parseNumberOrRef()
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
}

// parseName parses /Name, decoding #xx escapes.
func (p *parser) parseName() (Name, error) {
	if p.eof() || p.data[p.pos] != '/' {
		return "", p.errorf("expected name")
	}
	p.pos++

	var buf []byte
	for !p.eof() && class[p.data[p.pos]] == regular {
		c := p.data[p.pos]
		if c == '#' && p.pos+2 < len(p.data) {
			hi, lo := unhex(p.data[p.pos+1]), unhex(p.data[p.pos+2])
			if hi >= 0 && lo >= 0 {
				buf = append(buf, byte(hi<<4|lo))
				p.pos += 3
				continue
			}
		}
		buf = append(buf, c)
		p.pos++
	}
	return Name(buf), nil
}

func (p *parser) parseKeyword() (Object, error) {
	switch tok := p.readToken(); tok {
	case "true":
		return Boolean(true), nil
	case "false":
		return Boolean(false), nil
	case "null":
		return Null{}, nil
	default:
		return nil, p.errorf("unknown keyword %q", tok)
	}
}

// parseNumberOrRef parses an integer, a real, or an indirect reference N G R.
func (p *parser) parseNumberOrRef() (Object, error) {
	tok := p.readToken()
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", tok)
		}
		return Real(f), nil
	}
	if gen, ok := p.refTail(); ok && n >= 0 {
		return Reference{Number: int(n), Generation: gen}, nil
	}
	return Integer(n), nil
}

// refTail consumes "G R" after an object number. On mismatch the position
// is left unchanged.
func (p *parser) refTail() (int, bool) {
	saved := p.pos
	p.skipWhitespace()
	if p.eof() || p.data[p.pos] < '0' || p.data[p.pos] > '9' {
		p.pos = saved
		return 0, false
	}
	gen, err := strconv.Atoi(p.readToken())
	if err != nil || !p.keyword("R") {
		p.pos = saved
		return 0, false
	}
	return gen, true
}

// parseLiteralString parses (text). A backslash before an end of line joins
// the lines; an unescaped end of line of any kind reads as \n.
func (p *parser) parseLiteralString() (String, error) {
	start := p.pos
	p.pos++

	var buf []byte
	for depth := 1; ; {
		if p.eof() {
			p.pos = start
			return String{}, p.errorf("unterminated literal string")
		}
		c := p.data[p.pos]
		p.pos++
		switch c {
		case '(':
			depth++
		case ')':
			if depth--; depth == 0 {
				return String{Value: p.decrypted(buf)}, nil
			}
		case '\r':
			p.skipByte('\n')
			c = '\n'
		case '\\':
			if p.eof() {
				continue
			}
			c = p.data[p.pos]
			p.pos++
			switch c {
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case '\r':
				p.skipByte('\n')
				continue
			case '\n':
				continue
			default:
				if c >= '0' && c <= '7' {
					c = p.octal(c)
				}
			}
		}
		buf = append(buf, c)
	}
}

// octal reads up to two more octal digits after first.
func (p *parser) octal(first byte) byte {
	v := int(first - '0')
	for i := 0; i < 2 && !p.eof() && p.data[p.pos] >= '0' && p.data[p.pos] <= '7'; i++ {
		v = v*8 + int(p.data[p.pos]-'0')
		p.pos++
	}
	return byte(v)
}

func (p *parser) skipByte(c byte) {
	if !p.eof() && p.data[p.pos] == c {
		p.pos++
	}
}

// parseHexString parses <hex digits>. An odd final digit is padded with 0.
func (p *parser) parseHexString() (String, error) {
	p.pos++

	var buf []byte
	hi := -1
	for !p.eof() {
		c := p.data[p.pos]
		p.pos++
		switch {
		case c == '>':
			if hi >= 0 {
				buf = append(buf, byte(hi<<4))
			}
			return String{Value: p.decrypted(buf), IsHex: true}, nil
		case isWhitespace(c):
		case unhex(c) < 0:
			p.pos--
			return String{}, p.errorf("invalid hex digit %q", c)
		case hi < 0:
			hi = unhex(c)
		default:
			buf = append(buf, byte(hi<<4|unhex(c)))
			hi = -1
		}
	}
	return String{}, p.errorf("unterminated hex string")
}

// nest enters an array or dictionary.
func (p *parser) nest() error {
	if p.depth++; p.depth > maxDepth {
		return p.errorf("nesting deeper than %d", maxDepth)
	}
	return nil
}

// parseArray parses [obj1 obj2 ...].
func (p *parser) parseArray() (Array, error) {
	if err := p.nest(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	p.pos++

	arr := Array{}
	for {
		p.skipWhitespace()
		if p.eof() {
			return nil, p.errorf("unterminated array")
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// parseDict parses << /Key Value ... >>.
func (p *parser) parseDict() (Dict, error) {
	if err := p.nest(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	p.pos += 2

	d := make(Dict)
	for {
		p.skipWhitespace()
		if p.eof() {
			return nil, p.errorf("unterminated dictionary")
		}
		if bytes.HasPrefix(p.data[p.pos:], []byte(">>")) {
			p.pos += 2
			return d, nil
		}
		key, err := p.parseName()
		if err != nil {
			return nil, err
		}
		val, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("/%s: %w", key, err)
		}
		// A null value is the same as an absent key.
		if _, isNull := val.(Null); !isNull {
			d[key] = val
		}
	}
}

// ParseIndirectObject parses "N G obj ... endobj". A missing endobj is
// tolerated.
func (p *parser) ParseIndirectObject() (*IndirectObject, error) {
	num, err := p.readInt("object number")
	if err != nil {
		return nil, err
	}
	gen, err := p.readInt("generation number")
	if err != nil {
		return nil, err
	}
	if !p.keyword("obj") {
		return nil, p.errorf("expected obj keyword for object %d %d", num, gen)
	}

	val, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
	}

	if p.keyword("stream") {
		dict, ok := val.(Dict)
		if !ok {
			return nil, p.errorf("stream object %d %d has no dictionary", num, gen)
		}
		// The keyword ends with CRLF or LF; a bare CR is accepted too.
		p.skipByte('\r')
		p.skipByte('\n')
		data, err := p.readStreamData(dict)
		if err != nil {
			return nil, fmt.Errorf("stream object %d %d: %w", num, gen, err)
		}
		p.keyword("endstream")
		val = Stream{Dict: dict, Data: p.decrypted(data)}
	}
	p.keyword("endobj")

	return &IndirectObject{
		Reference: Reference{Number: num, Generation: gen},
		Value:     val,
	}, nil
}

var endstream = []byte("endstream")

// readStreamData returns a copy of the stream body at the current position.
// A missing or wrong /Length falls back to scanning for "endstream".
func (p *parser) readStreamData(dict Dict) ([]byte, error) {
	length := -1
	switch v := dict["Length"].(type) {
	case Integer:
		length = int(v)
	case Reference:
		if p.length != nil {
			if n, ok := p.length(v); ok {
				length = n
			}
		}
	}

	end := p.pos + length
	if length < 0 || end > len(p.data) || !endstreamAt(p.data, end) {
		idx := bytes.Index(p.data[p.pos:], endstream)
		if idx < 0 {
			return nil, io.ErrUnexpectedEOF
		}
		end = p.pos + idx
		// The EOL before "endstream" is not part of the data.
		if end > p.pos && p.data[end-1] == '\n' {
			end--
		}
		if end > p.pos && p.data[end-1] == '\r' {
			end--
		}
	}

	data := bytes.Clone(p.data[p.pos:end])
	p.pos = end
	return data, nil
}

// endstreamAt reports whether "endstream" follows pos after optional whitespace.
func endstreamAt(data []byte, pos int) bool {
	for pos < len(data) && isWhitespace(data[pos]) {
		pos++
	}
	return bytes.HasPrefix(data[pos:], endstream)
}

func (p *parser) decrypted(b []byte) []byte {
	if p.decrypt == nil {
		return b
	}
	return p.decrypt(b)
}

// unhex returns the value of a hex digit, or -1.
func unhex(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	default:
		return -1
	}
}
