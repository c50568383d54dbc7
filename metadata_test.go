package pdfcombiner_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lakshan-sameera/pdfcombiner"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"20240131154500", time.Date(2024, 1, 31, 15, 45, 0, 0, time.Local)},
		{"D:20240131154500", time.Date(2024, 1, 31, 15, 45, 0, 0, time.Local)},
		{"D:20240131", time.Date(2024, 1, 31, 0, 0, 0, 0, time.Local)},
		{"2024", time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)},
		{"D:20240131154500Z", time.Date(2024, 1, 31, 15, 45, 0, 0, time.UTC)},
		{"D:20240131154500+02'00'", time.Date(2024, 1, 31, 13, 45, 0, 0, time.UTC)},
		{"D:20240131154500-05'30", time.Date(2024, 1, 31, 21, 15, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := pdfcombiner.ParseDate(tt.in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, in := range []string{"", "D:", "tomorrow", "202", "20241", "20241399", "20240101+ab"} {
		if _, err := pdfcombiner.ParseDate(in); !errors.Is(err, pdfcombiner.ErrInvalidDate) {
			t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", in, err)
		}
	}
}

func TestMetadataApplied(t *testing.T) {
	m := pdfcombiner.Metadata{
		Title:        "Report",
		Keywords:     "q1, finance",
		CreationDate: "20240101120000",
		ModDate:      "D:20240102+02'00'",
	}
	got := m.Applied()
	want := map[string]string{
		"/Title":        "Report",
		"/Keywords":     "q1, finance",
		"/CreationDate": "D:20240101120000",
		"/ModDate":      "D:20240102000000",
	}
	if len(got) != len(want) {
		t.Fatalf("Applied() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Applied()[%s] = %q, want %q", k, got[k], v)
		}
	}
	if _, ok := got["/Author"]; ok {
		t.Error("empty Author should be omitted")
	}
}

func TestFormatDate(t *testing.T) {
	tm, err := pdfcombiner.ParseDate("D:202405061830-05'00")
	if err != nil {
		t.Fatal(err)
	}
	if got := pdfcombiner.FormatDate(tm); got != "D:20240506183000" {
		t.Errorf("FormatDate = %q, want D:20240506183000", got)
	}
}

func TestMetadataValidate(t *testing.T) {
	if err := (pdfcombiner.Metadata{Title: "x"}).Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	err := (pdfcombiner.Metadata{ModDate: "yesterday"}).Validate()
	if !errors.Is(err, pdfcombiner.ErrInvalidDate) {
		t.Errorf("Validate error = %v, want ErrInvalidDate", err)
	}
}

func TestRotationSpecValidate(t *testing.T) {
	for _, angle := range []int{90, 180, 270} {
		if err := (pdfcombiner.RotationSpec{Angle: angle, Pages: "all"}).Validate(); err != nil {
			t.Errorf("angle %d: %v", angle, err)
		}
	}
	for _, angle := range []int{0, 45, -90, 360} {
		err := (pdfcombiner.RotationSpec{Angle: angle, Pages: "all"}).Validate()
		if !errors.Is(err, pdfcombiner.ErrInvalidAngle) {
			t.Errorf("angle %d: error = %v, want ErrInvalidAngle", angle, err)
		}
	}
	if !(pdfcombiner.RotationSpec{Pages: " ALL "}).SelectsAll() {
		t.Error("selector \" ALL \" should select all pages")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	if !errors.Is(pdfcombiner.ErrOutOfBounds, pdfcombiner.ErrInvalidRange) {
		t.Error("ErrOutOfBounds should match ErrInvalidRange")
	}
	if !errors.Is(pdfcombiner.ErrInvalidFormat, pdfcombiner.ErrInvalidRange) {
		t.Error("ErrInvalidFormat should match ErrInvalidRange")
	}
	err := pdfcombiner.NewPDFError("open", "a.pdf", pdfcombiner.ErrCancelled)
	if !errors.Is(err, pdfcombiner.ErrCancelled) {
		t.Error("PDFError should unwrap to its cause")
	}
	if got := err.Error(); got != "pdfcombiner.open a.pdf: pdfcombiner: cancelled by user" {
		t.Errorf("Error() = %q", got)
	}
}
