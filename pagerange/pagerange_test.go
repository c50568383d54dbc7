package pagerange_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/lakshan-sameera/pdfcombiner"
	"github.com/lakshan-sameera/pdfcombiner/pagerange"
)

func TestParse(t *testing.T) {
	tests := []struct {
		spec string
		max  int
		want []int
	}{
		{"", 5, []int{0, 1, 2, 3, 4}},
		{"   ", 3, []int{0, 1, 2}},
		{"1-3,5", 5, []int{0, 1, 2, 4}},
		{"1-3,2-4", 5, []int{0, 1, 2, 3}},
		{"5, 1", 5, []int{0, 4}},
		{" 2 - 4 ", 5, []int{1, 2, 3}},
		{"3-3", 5, []int{2}},
		{"1,1,1", 2, []int{0}},
		{"1-5", 5, []int{0, 1, 2, 3, 4}},
		{"", 0, []int{}},
	}
	for _, tt := range tests {
		got, err := pagerange.Parse(tt.spec, tt.max)
		if err != nil {
			t.Errorf("Parse(%q, %d): %v", tt.spec, tt.max, err)
			continue
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Parse(%q, %d) = %v, want %v", tt.spec, tt.max, got, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		spec  string
		max   int
		kind  error
		token string
	}{
		{"3-1", 5, pdfcombiner.ErrOutOfBounds, "3-1"},
		{"6", 5, pdfcombiner.ErrOutOfBounds, "6"},
		{"0", 5, pdfcombiner.ErrOutOfBounds, "0"},
		{"1-6", 5, pdfcombiner.ErrOutOfBounds, "1-6"},
		{"0-2", 5, pdfcombiner.ErrOutOfBounds, "0-2"},
		{"a-b", 5, pdfcombiner.ErrInvalidFormat, "a-b"},
		{"x", 5, pdfcombiner.ErrInvalidFormat, "x"},
		{"1,,2", 5, pdfcombiner.ErrInvalidFormat, ""},
		{"1-2-3", 5, pdfcombiner.ErrInvalidFormat, "1-2-3"},
		{"-2", 5, pdfcombiner.ErrInvalidFormat, "-2"},
		{"2-", 5, pdfcombiner.ErrInvalidFormat, "2-"},
		{"+1", 5, pdfcombiner.ErrInvalidFormat, "+1"},
		{"1.5", 5, pdfcombiner.ErrInvalidFormat, "1.5"},
		{"1", 0, pdfcombiner.ErrOutOfBounds, "1"},
		{"99999999999999999999", 5, pdfcombiner.ErrOutOfBounds, "99999999999999999999"},
		{"1-99999999999999999999", 5, pdfcombiner.ErrOutOfBounds, "1-99999999999999999999"},
		{"99999999999999999999-1", 5, pdfcombiner.ErrOutOfBounds, "99999999999999999999-1"},
	}
	for _, tt := range tests {
		_, err := pagerange.Parse(tt.spec, tt.max)
		if !errors.Is(err, tt.kind) {
			t.Errorf("Parse(%q, %d) error = %v, want %v", tt.spec, tt.max, err, tt.kind)
			continue
		}
		if !errors.Is(err, pdfcombiner.ErrInvalidRange) {
			t.Errorf("Parse(%q) error should match ErrInvalidRange", tt.spec)
		}
		var rerr *pdfcombiner.RangeError
		if !errors.As(err, &rerr) {
			t.Errorf("Parse(%q) error is %T, want *RangeError", tt.spec, err)
			continue
		}
		if rerr.Token != tt.token || rerr.Max != tt.max {
			t.Errorf("Parse(%q) RangeError{Token: %q, Max: %d}, want {%q, %d}",
				tt.spec, rerr.Token, rerr.Max, tt.token, tt.max)
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	first, err := pagerange.Parse("4-5, 1-3, 2-4", 5)
	if err != nil {
		t.Fatal(err)
	}
	second, err := pagerange.Parse("4-5, 1-3, 2-4", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(first, second) {
		t.Errorf("results differ: %v vs %v", first, second)
	}
}

func TestTargets(t *testing.T) {
	tests := []struct {
		pages string
		max   int
		want  []int
	}{
		{"all", 4, []int{0, 1, 2, 3}},
		{"ALL", 4, []int{0, 1, 2, 3}},
		{" All ", 2, []int{0, 1}},
		{"2", 4, []int{1}},
		{"1, 3-4", 4, []int{0, 2, 3}},
	}
	for _, tt := range tests {
		got, err := pagerange.Targets(pdfcombiner.RotationSpec{Angle: 90, Pages: tt.pages}, tt.max)
		if err != nil {
			t.Errorf("Targets(%q): %v", tt.pages, err)
			continue
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Targets(%q, %d) = %v, want %v", tt.pages, tt.max, got, tt.want)
		}
	}

	if _, err := pagerange.Targets(pdfcombiner.RotationSpec{Angle: 90, Pages: "5"}, 4); !errors.Is(err, pdfcombiner.ErrOutOfBounds) {
		t.Errorf("Targets(\"5\", 4) error = %v, want ErrOutOfBounds", err)
	}
}
