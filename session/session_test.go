package session_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/lakshan-sameera/pdfcombiner"
	"github.com/lakshan-sameera/pdfcombiner/access"
	"github.com/lakshan-sameera/pdfcombiner/assemble"
	"github.com/lakshan-sameera/pdfcombiner/reader"
	"github.com/lakshan-sameera/pdfcombiner/session"
)

func createTestPDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Source "+name, false)
	pdf.SetAuthor("Tester", false)
	pdf.SetFont("Helvetica", "", 12)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		pdf.Text(10, 20, fmt.Sprintf("%s %d", name, i))
	}
	path := filepath.Join(dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("creating test PDF: %v", err)
	}
	return path
}

func paths(s *session.Session) []string {
	var out []string
	for _, e := range s.Entries() {
		out = append(out, filepath.Base(e.Path))
	}
	return out
}

func TestAdd(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	s := session.New()

	if n := s.Add(a, filepath.Join(dir, "notes.txt"), filepath.Join(dir, "B.PDF")); n != 2 {
		t.Errorf("Add = %d, want 2", n)
	}
	// The same file through a different spelling is a duplicate.
	if n := s.Add(filepath.Join(dir, ".", "a.pdf"), a); n != 0 {
		t.Errorf("duplicate Add = %d, want 0", n)
	}
	if got := fmt.Sprint(paths(s)); got != "[a.pdf B.PDF]" {
		t.Errorf("entries = %s", got)
	}
	for _, e := range s.Entries() {
		if !filepath.IsAbs(e.Path) {
			t.Errorf("stored path %q is not absolute", e.Path)
		}
	}
}

func TestRemoveUndo(t *testing.T) {
	dir := t.TempDir()
	s := session.New()
	s.Add(filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf"), filepath.Join(dir, "c.pdf"))

	removed, err := s.Remove(1)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(removed.Path) != "b.pdf" {
		t.Errorf("removed %s", removed.Path)
	}
	if got := fmt.Sprint(paths(s)); got != "[a.pdf c.pdf]" {
		t.Errorf("after remove = %s", got)
	}
	if !s.CanUndo() {
		t.Fatal("CanUndo = false after Remove")
	}

	if _, ok := s.Undo(); !ok {
		t.Fatal("Undo reported nothing to undo")
	}
	if got := fmt.Sprint(paths(s)); got != "[a.pdf b.pdf c.pdf]" {
		t.Errorf("after undo = %s", got)
	}
	if _, ok := s.Undo(); ok {
		t.Error("second Undo succeeded")
	}

	// Other commands discard the undo slot.
	s.Remove(0)
	s.MoveDown(0)
	if _, ok := s.Undo(); ok {
		t.Error("Undo after MoveDown succeeded")
	}

	if _, err := s.Remove(7); !errors.Is(err, pdfcombiner.ErrNoSelection) {
		t.Errorf("Remove(7) = %v, want ErrNoSelection", err)
	}
}

func TestMove(t *testing.T) {
	dir := t.TempDir()
	s := session.New()
	s.Add(filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf"), filepath.Join(dir, "c.pdf"))

	if err := s.MoveUp(2); err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(paths(s)); got != "[a.pdf c.pdf b.pdf]" {
		t.Errorf("after MoveUp(2) = %s", got)
	}
	if err := s.MoveDown(0); err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(paths(s)); got != "[c.pdf a.pdf b.pdf]" {
		t.Errorf("after MoveDown(0) = %s", got)
	}

	// Moving past either end is a no-op.
	s.MoveUp(0)
	s.MoveDown(2)
	if got := fmt.Sprint(paths(s)); got != "[c.pdf a.pdf b.pdf]" {
		t.Errorf("after edge moves = %s", got)
	}
	if err := s.MoveUp(-1); !errors.Is(err, pdfcombiner.ErrNoSelection) {
		t.Errorf("MoveUp(-1) = %v", err)
	}
}

func TestSetPageRange(t *testing.T) {
	dir := t.TempDir()
	s := session.New()
	s.Add(createTestPDF(t, dir, "a.pdf", 4))

	if err := s.SetPageRange(0, "2-3"); err != nil {
		t.Fatalf("SetPageRange: %v", err)
	}
	if got := s.Entries()[0].PageRange; got != "2-3" {
		t.Errorf("PageRange = %q", got)
	}

	// Rejected specs leave the stored range alone.
	for _, spec := range []string{"5", "x", "2-1"} {
		if err := s.SetPageRange(0, spec); !errors.Is(err, pdfcombiner.ErrInvalidRange) {
			t.Errorf("SetPageRange(%q) = %v, want ErrInvalidRange", spec, err)
		}
		if got := s.Entries()[0].PageRange; got != "2-3" {
			t.Errorf("after %q PageRange = %q", spec, got)
		}
	}

	if err := s.ClearPageRange(0); err != nil {
		t.Fatal(err)
	}
	if got := s.Entries()[0].PageRange; got != "" {
		t.Errorf("after clear PageRange = %q", got)
	}
}

func TestSetRotation(t *testing.T) {
	dir := t.TempDir()
	s := session.New()
	s.Add(createTestPDF(t, dir, "a.pdf", 3))

	if err := s.SetRotation(0, 90, "all"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRotation(0, 270, "1,3"); err != nil {
		t.Fatal(err)
	}
	rot := s.Entries()[0].Rotation
	if rot == nil || rot.Angle != 270 || rot.Pages != "1,3" {
		t.Fatalf("Rotation = %+v", rot)
	}

	if err := s.SetRotation(0, 45, "all"); !errors.Is(err, pdfcombiner.ErrInvalidAngle) {
		t.Errorf("angle 45: %v", err)
	}
	if err := s.SetRotation(0, 90, "4"); !errors.Is(err, pdfcombiner.ErrOutOfBounds) {
		t.Errorf("page 4: %v", err)
	}
	if rot := s.Entries()[0].Rotation; rot.Angle != 270 || rot.Pages != "1,3" {
		t.Errorf("rejected rotation changed the entry: %+v", rot)
	}

	// Entries returns copies.
	s.Entries()[0].Rotation.Angle = 180
	if s.Entries()[0].Rotation.Angle != 270 {
		t.Error("Entries exposes internal state")
	}

	if err := s.ClearRotation(0); err != nil {
		t.Fatal(err)
	}
	if s.Entries()[0].Rotation != nil {
		t.Error("rotation not cleared")
	}
}

func TestSetPageRangeLocked(t *testing.T) {
	dir := t.TempDir()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetProtection(0, "pw", "")
	path := filepath.Join(dir, "locked.pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}

	s := session.New()
	s.Add(path)
	if err := s.SetPageRange(0, "1"); !errors.Is(err, pdfcombiner.ErrCancelled) {
		t.Errorf("without a prompt: %v, want ErrCancelled", err)
	}

	prompt := access.PromptFunc(func(string) (string, bool) { return "pw", true })
	s = session.New(session.WithOpener(access.New(prompt)))
	s.Add(path)
	if err := s.SetPageRange(0, "1"); err != nil {
		t.Errorf("with the password: %v", err)
	}
}

func TestPreview(t *testing.T) {
	dir := t.TempDir()
	s := session.New()
	s.Add(createTestPDF(t, dir, "a.pdf", 1))

	meta, err := s.Preview(0)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Title != "Source a.pdf" || meta.Author != "Tester" {
		t.Errorf("meta = %+v", meta)
	}
	if meta.CreationDate == "" || meta.CreationDate[0] == 'D' {
		t.Errorf("CreationDate = %q, want a date without prefix", meta.CreationDate)
	}
	if err := meta.Validate(); err != nil {
		t.Errorf("previewed metadata does not validate: %v", err)
	}
}

func TestCombine(t *testing.T) {
	dir := t.TempDir()
	a := createTestPDF(t, dir, "a.pdf", 3)
	b := createTestPDF(t, dir, "b.pdf", 2)
	out := filepath.Join(dir, "out.pdf")

	s := session.New(session.WithResetOnSuccess(true))
	s.Add(a, b)
	if err := s.SetPageRange(0, "1-2"); err != nil {
		t.Fatal(err)
	}

	// A failing combine keeps the configured entries.
	if _, err := s.Combine(assemble.New(), pdfcombiner.Metadata{}, "", filepath.Join(dir, "nodir", "out.pdf")); err == nil {
		t.Fatal("expected a write error")
	}
	if s.Len() != 2 || s.Entries()[0].PageRange != "1-2" {
		t.Errorf("entries changed by failed combine: %+v", s.Entries())
	}

	if _, err := s.Combine(assemble.New(), pdfcombiner.Metadata{Title: "Both"}, "", out); err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after successful combine, want 0", s.Len())
	}

	doc, err := reader.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	if doc.NumPages() != 4 {
		t.Errorf("NumPages = %d, want 4", doc.NumPages())
	}
}
