package main

import (
	"testing"
)

func TestIndexedFlag(t *testing.T) {
	f := indexedFlag{}
	for _, v := range []string{"2=1-3", "1=all", "2=4"} {
		if err := f.Set(v); err != nil {
			t.Fatalf("Set(%q): %v", v, err)
		}
	}
	if got := f.String(); got != "1=all 2=4" {
		t.Errorf("String = %q", got)
	}
	for _, bad := range []string{"1-3", "0=1", "x=1"} {
		if err := f.Set(bad); err == nil {
			t.Errorf("Set(%q) accepted", bad)
		}
	}
}

func TestParseRotation(t *testing.T) {
	tests := []struct {
		in    string
		angle int
		pages string
	}{
		{"90", 90, "all"},
		{"270:1,3", 270, "1,3"},
		{" 180 :", 180, "all"},
	}
	for _, tt := range tests {
		angle, pages, err := parseRotation(tt.in)
		if err != nil {
			t.Errorf("parseRotation(%q): %v", tt.in, err)
			continue
		}
		if angle != tt.angle || pages != tt.pages {
			t.Errorf("parseRotation(%q) = %d, %q", tt.in, angle, pages)
		}
	}
	if _, _, err := parseRotation("right"); err == nil {
		t.Error("parseRotation(\"right\") accepted")
	}
}
