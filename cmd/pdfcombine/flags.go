package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lakshan-sameera/pdfcombiner"
)

// indexedFlag collects repeated N=VALUE flags keyed by source position.
// A later value for the same source replaces the earlier one.
type indexedFlag map[int]string

// positions returns the source positions in ascending order.
func (f indexedFlag) positions() []int {
	keys := make([]int, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func (f indexedFlag) String() string {
	keys := f.positions()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d=%s", k, f[k])
	}
	return strings.Join(parts, " ")
}

func (f indexedFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("want N=VALUE, got %q", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil || n < 1 {
		return fmt.Errorf("source number must be a positive integer, got %q", key)
	}
	f[n] = value
	return nil
}

// parseRotation splits ANGLE[:PAGES]. Pages default to all.
func parseRotation(s string) (angle int, pages string, err error) {
	a, pages, _ := strings.Cut(s, ":")
	angle, err = strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, "", fmt.Errorf("bad angle %q", a)
	}
	if strings.TrimSpace(pages) == "" {
		pages = pdfcombiner.AllPages
	}
	return angle, pages, nil
}
