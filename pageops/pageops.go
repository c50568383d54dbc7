// Package pageops builds output documents from pages of existing PDFs.
//
// Source pages are exported by the reader package as a decrypted plain copy
// and imported as templates with gofpdi; gofpdf writes the result. Page
// rotation is rendered into the output page rather than carried as /Rotate.
package pageops

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"

	"github.com/lakshan-sameera/pdfcombiner"
	"github.com/lakshan-sameera/pdfcombiner/reader"
)

// ErrNoPages is returned when writing an assembler that has no pages.
var ErrNoPages = errors.New("pageops: no pages added")

// A4 in points, used when a template reports no size.
const (
	defaultWidth  = 595.28
	defaultHeight = 841.89
)

// Assembler accumulates pages into a new document. The zero value is not
// usable; create one with New.
type Assembler struct {
	pdf      *gofpdf.Fpdf
	imp      *gofpdi.Importer
	sources  []*io.ReadSeeker // kept alive; gofpdi keys sources by pointer
	password string
	pages    int
	logger   *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger used for per-page debug events.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// New returns an empty assembler.
func New(opts ...Option) *Assembler {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	// Only metadata set through SetMetadata is written.
	pdf.SetProducer("", false)

	a := &Assembler{
		pdf:    pdf,
		imp:    gofpdi.NewImporter(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PageCount returns the number of pages added so far.
func (a *Assembler) PageCount() int { return a.pages }

// AddPages appends the pages of doc at the given zero-based indices, in the
// order given, each with the rotation its page currently carries.
func (a *Assembler) AddPages(doc *reader.Document, indices []int) (err error) {
	if len(indices) == 0 {
		return nil
	}

	var plain bytes.Buffer
	if err := doc.WritePlain(&plain); err != nil {
		return fmt.Errorf("pageops: exporting source: %w", err)
	}
	rs := io.ReadSeeker(bytes.NewReader(plain.Bytes()))
	a.sources = append(a.sources, &rs)

	// gofpdi panics on input it cannot parse.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pageops: importing page: %v", r)
		}
	}()

	for _, i := range indices {
		page, err := doc.Page(i + 1)
		if err != nil {
			return fmt.Errorf("pageops: %w", err)
		}

		tplID, w, h := importPage(a.pdf, a.imp, &rs, page)
		placePage(a.pdf, a.imp, tplID, w, h, page.Rotate)
		a.pages++
		a.logger.Debug("page added", "source_page", i+1, "rotate", page.Rotate, "output_page", a.pages)

		if a.pdf.Err() {
			return fmt.Errorf("pageops: adding page %d: %w", i+1, a.pdf.Error())
		}
	}
	return nil
}

// importPage imports a single page into the target PDF and returns the
// template ID and the page dimensions.
func importPage(pdf *gofpdf.Fpdf, imp *gofpdi.Importer, rs *io.ReadSeeker, page *reader.Page) (tplID int, w, h float64) {
	tplID = imp.ImportPageFromStream(pdf, rs, page.Number, "/MediaBox")
	if dims, ok := imp.GetPageSizes()[page.Number]; ok {
		if mb, ok := dims["/MediaBox"]; ok {
			w, h = mb["w"], mb["h"]
		}
	}
	if w == 0 || h == 0 {
		w, h = page.MediaBox.Width(), page.MediaBox.Height()
	}
	if w == 0 || h == 0 {
		w, h = defaultWidth, defaultHeight
	}
	return tplID, w, h
}

// SetMetadata sets the document information entries. Keys are the ones
// returned by pdfcombiner.Metadata.Applied; empty values are skipped.
func (a *Assembler) SetMetadata(entries map[string]string) error {
	for key, value := range entries {
		if value == "" {
			continue
		}
		switch key {
		case pdfcombiner.KeyTitle:
			a.pdf.SetTitle(value, true)
		case pdfcombiner.KeyAuthor:
			a.pdf.SetAuthor(value, true)
		case pdfcombiner.KeySubject:
			a.pdf.SetSubject(value, true)
		case pdfcombiner.KeyKeywords:
			a.pdf.SetKeywords(value, true)
		case pdfcombiner.KeyCreator:
			a.pdf.SetCreator(value, true)
		case pdfcombiner.KeyProducer:
			a.pdf.SetProducer(value, true)
		case pdfcombiner.KeyCreationDate, pdfcombiner.KeyModDate:
			tm, err := pdfcombiner.ParseDate(value)
			if err != nil {
				return fmt.Errorf("pageops: %s: %w", key, err)
			}
			if key == pdfcombiner.KeyCreationDate {
				a.pdf.SetCreationDate(tm)
			} else {
				a.pdf.SetModificationDate(tm)
			}
		default:
			return fmt.Errorf("pageops: unknown metadata key %q", key)
		}
	}
	return nil
}

// Protect encrypts the output with password as both the user and the owner
// password, granting all permissions. An empty password leaves the output
// unencrypted.
func (a *Assembler) Protect(password string) { a.password = password }

// Output writes the assembled document to w. The assembler cannot be used
// afterwards.
func (a *Assembler) Output(w io.Writer) error {
	if a.pages == 0 {
		return ErrNoPages
	}
	if a.password == "" {
		if err := a.pdf.Output(w); err != nil {
			return fmt.Errorf("pageops: writing: %w", err)
		}
		return nil
	}

	// gofpdf leaves imported templates unencrypted under SetProtection, so
	// encryption is applied to the finished document instead.
	var plain bytes.Buffer
	if err := a.pdf.Output(&plain); err != nil {
		return fmt.Errorf("pageops: writing: %w", err)
	}
	doc, err := reader.ReadFrom(bytes.NewReader(plain.Bytes()))
	if err != nil {
		return fmt.Errorf("pageops: re-reading output: %w", err)
	}
	if err := doc.WriteEncrypted(w, a.password, a.password); err != nil {
		return fmt.Errorf("pageops: encrypting: %w", err)
	}
	return nil
}
