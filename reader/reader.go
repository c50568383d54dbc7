package reader

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
)

var (
	// ErrLocked is returned by page accessors of an encrypted document that
	// has not been decrypted yet.
	ErrLocked = errors.New("reader: document is locked")

	// ErrInvalidPassword is returned when a password matches neither the
	// user nor the owner password.
	ErrInvalidPassword = errors.New("reader: invalid password")

	// ErrUnsupportedEncryption is returned for security handlers other than
	// the standard RC4 and AES ones.
	ErrUnsupportedEncryption = errors.New("reader: unsupported encryption")

	// ErrClosed is returned by accessors after Close.
	ErrClosed = errors.New("reader: document is closed")
)

// Document represents a parsed PDF document.
type Document struct {
	Version string // PDF version from file header (e.g., "1.7")
	xref    xrefTable
	trailer Dict
	data    []byte
	pages   []*Page

	sec    *securityHandler // non-nil if the document is encrypted
	encNum int              // object number of /Encrypt, never decrypted
	locked bool
	closed bool

	cache     map[int]Object
	objStms   map[int]*objectStream
	resolving map[int]bool
}

// Open opens and parses a PDF file from disk.
//
// An encrypted file is decrypted with the empty password when that works;
// otherwise the document is returned locked and Decrypt must be called
// before its pages can be used.
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reader: opening %s: %w", filename, err)
	}
	return parse(data)
}

// ReadFrom parses a PDF document from a reader.
// The reader content is read entirely into memory for random access.
func ReadFrom(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reader: reading input: %w", err)
	}
	return parse(data)
}

// OpenWithPassword opens and parses an encrypted PDF file using the given password.
func OpenWithPassword(filename, password string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reader: opening %s: %w", filename, err)
	}
	return parseWithPassword(data, password)
}

// ReadFromWithPassword parses an encrypted PDF from a reader using the given password.
func ReadFromWithPassword(r io.Reader, password string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reader: reading input: %w", err)
	}
	return parseWithPassword(data, password)
}

func parseWithPassword(data []byte, password string) (*Document, error) {
	doc, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := doc.Decrypt(password); err != nil {
		return nil, err
	}
	return doc, nil
}

// parse builds a Document from raw PDF bytes.
func parse(data []byte) (*Document, error) {
	doc := &Document{
		data:      data,
		Version:   parseVersion(data),
		cache:     make(map[int]Object),
		objStms:   make(map[int]*objectStream),
		resolving: make(map[int]bool),
	}

	startXRef, err := findStartXRef(data)
	if err != nil {
		return nil, err
	}
	xref, trailer, err := readXRef(data, startXRef)
	if err != nil {
		return nil, err
	}
	doc.xref = xref
	doc.trailer = trailer

	if _, ok := trailer["Encrypt"]; ok {
		if err := doc.initSecurity(); err != nil {
			return nil, err
		}
		if !doc.sec.authenticate("") {
			doc.locked = true
			return doc, nil
		}
	}

	if err := doc.buildPageList(); err != nil {
		return nil, err
	}
	return doc, nil
}

// initSecurity reads the /Encrypt dictionary without decrypting it.
func (d *Document) initSecurity() error {
	var enc Dict
	switch v := d.trailer["Encrypt"].(type) {
	case Dict:
		enc = v
	case Reference:
		d.encNum = v.Number
		obj, err := d.resolve(v)
		if err != nil {
			return fmt.Errorf("reader: resolving /Encrypt: %w", err)
		}
		enc, _ = obj.(Dict)
	}
	if enc == nil {
		return fmt.Errorf("reader: /Encrypt is not a dictionary")
	}

	sec, err := newSecurityHandler(enc, d.trailer)
	if err != nil {
		return err
	}
	d.sec = sec
	return nil
}

// parseVersion extracts the PDF version from the file header (e.g., "%PDF-1.7").
func parseVersion(data []byte) string {
	if len(data) < 8 {
		return ""
	}
	header := string(data[:min(20, len(data))])
	if idx := strings.Index(header, "%PDF-"); idx >= 0 {
		end := idx + 5
		for end < len(header) && header[end] != '\n' && header[end] != '\r' {
			end++
		}
		return header[idx+5 : end]
	}
	return ""
}

// Encrypted reports whether the document has an /Encrypt entry.
func (d *Document) Encrypted() bool { return d.sec != nil }

// Locked reports whether the document is encrypted and still waits for a
// password.
func (d *Document) Locked() bool { return d.locked }

// Decrypt authenticates password as either the user or the owner password
// and unlocks the document. It is a no-op for documents that are not
// locked.
//
// A wrong password yields ErrInvalidPassword. If the password is right but
// the page tree cannot be read, that error is returned and the document
// stays locked with no pages.
func (d *Document) Decrypt(password string) error {
	if d.closed {
		return ErrClosed
	}
	if !d.locked {
		return nil
	}
	if !d.sec.authenticate(password) {
		return ErrInvalidPassword
	}
	d.locked = false
	clear(d.cache)
	clear(d.objStms)
	if err := d.buildPageList(); err != nil {
		d.relock()
		return err
	}
	return nil
}

// relock discards everything read with the file key.
func (d *Document) relock() {
	d.locked = true
	d.pages = nil
	d.sec.key = nil
	clear(d.cache)
	clear(d.objStms)
}

// NumPages returns the total number of pages in the document. A locked or
// closed document reports zero pages.
func (d *Document) NumPages() int {
	return len(d.pages)
}

// Page returns the page at the given 1-based index.
func (d *Document) Page(n int) (*Page, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("reader: page %d out of range [1, %d]", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

// Pages returns an iterator over all pages. Index is 1-based.
func (d *Document) Pages() iter.Seq2[int, *Page] {
	return func(yield func(int, *Page) bool) {
		for i, page := range d.pages {
			if !yield(i+1, page) {
				return
			}
		}
	}
}

// Close releases the file contents. The document is unusable afterwards.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.data = nil
	d.pages = nil
	d.cache = nil
	d.objStms = nil
	return nil
}

func (d *Document) usable() error {
	switch {
	case d.closed:
		return ErrClosed
	case d.locked:
		return ErrLocked
	}
	return nil
}

// resolve resolves an indirect reference to the actual object.
// Missing and free objects resolve to Null.
func (d *Document) resolve(ref Reference) (Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if obj, ok := d.cache[ref.Number]; ok {
		return obj, nil
	}
	if d.resolving[ref.Number] {
		return nil, fmt.Errorf("reader: object %d refers to itself", ref.Number)
	}
	d.resolving[ref.Number] = true
	defer delete(d.resolving, ref.Number)

	entry, ok := d.xref[ref.Number]
	if !ok {
		return Null{}, nil
	}

	var obj Object
	var err error
	switch entry.Kind {
	case entryInUse:
		obj, err = d.readObject(ref, entry.Offset)
	case entryCompressed:
		obj, err = d.readCompressed(ref.Number, int(entry.Offset), entry.Generation)
	default:
		return Null{}, nil
	}
	if err != nil {
		return nil, err
	}
	d.cache[ref.Number] = obj
	return obj, nil
}

// readObject parses the indirect object stored at offset.
func (d *Document) readObject(ref Reference, offset int64) (Object, error) {
	if offset < 0 || int(offset) >= len(d.data) {
		return nil, fmt.Errorf("reader: object %d offset %d out of bounds", ref.Number, offset)
	}

	p := newParserAt(d.data, int(offset))
	if !d.locked && ref.Number != d.encNum {
		p.decrypt = d.sec.objectDecrypter(ref.Number, ref.Generation)
	}
	p.length = func(r Reference) (int, bool) {
		obj, err := d.resolve(r)
		if err != nil {
			return 0, false
		}
		n, ok := obj.(Integer)
		return int(n), ok
	}

	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("reader: parsing object %d: %w", ref.Number, err)
	}
	return obj.Value, nil
}

// resolveIfRef resolves an object if it is a Reference, otherwise returns it as-is.
func (d *Document) resolveIfRef(obj Object) (Object, error) {
	if ref, ok := obj.(Reference); ok {
		return d.resolve(ref)
	}
	return obj, nil
}

// ResolveReference resolves an indirect reference to the actual object.
// This is the public API for resolving references.
func (d *Document) ResolveReference(ref Reference) (Object, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	return d.resolve(ref)
}
