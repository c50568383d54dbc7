// Package pagerange resolves 1-based page range specs such as "1-3, 5" into
// sorted, de-duplicated, zero-based page indices.
package pagerange

import (
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/lakshan-sameera/pdfcombiner"
)

// Parse resolves spec against a document with maxPages pages.
//
// An empty spec selects every page. Otherwise spec is a comma separated list
// of page numbers N and inclusive ranges A-B, whitespace is ignored, and every
// value must lie within 1..maxPages. The result is ascending and contains
// each index once regardless of input order or overlap.
//
// Failures are *pdfcombiner.RangeError values wrapping
// pdfcombiner.ErrInvalidFormat or pdfcombiner.ErrOutOfBounds.
func Parse(spec string, maxPages int) ([]int, error) {
	spec = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, spec)
	if spec == "" {
		return All(maxPages), nil
	}

	seen := make(map[int]bool)
	for _, tok := range strings.Split(spec, ",") {
		first, last, err := parseToken(tok, maxPages)
		if err != nil {
			return nil, err
		}
		for i := first; i <= last; i++ {
			seen[i-1] = true
		}
	}

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	slices.Sort(indices)
	return indices, nil
}

// parseToken returns the 1-based inclusive bounds of a single token.
func parseToken(tok string, maxPages int) (first, last int, err error) {
	lo, hi, isRange := strings.Cut(tok, "-")
	if !isRange {
		n, ok := atoi(tok)
		if !ok {
			return 0, 0, rangeError(tok, maxPages, pdfcombiner.ErrInvalidFormat)
		}
		if n < 1 || n > maxPages {
			return 0, 0, rangeError(tok, maxPages, pdfcombiner.ErrOutOfBounds)
		}
		return n, n, nil
	}

	a, okA := atoi(lo)
	b, okB := atoi(hi)
	if !okA || !okB {
		return 0, 0, rangeError(tok, maxPages, pdfcombiner.ErrInvalidFormat)
	}
	if a < 1 || a > b || b > maxPages {
		return 0, 0, rangeError(tok, maxPages, pdfcombiner.ErrOutOfBounds)
	}
	return a, b, nil
}

// atoi accepts unsigned decimal integers only; signs are not page numbers.
// Numbers too large for an int come back as math.MaxInt, past every page.
func atoi(s string) (int, bool) {
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, true
	}
	return n, err == nil
}

func rangeError(tok string, maxPages int, kind error) error {
	return &pdfcombiner.RangeError{Token: tok, Max: maxPages, Err: kind}
}

// All returns the indices 0..maxPages-1.
func All(maxPages int) []int {
	indices := make([]int, max(maxPages, 0))
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// Targets resolves the pages a rotation applies to: every page when the
// selector is "all" (in any case), otherwise the selector parsed as a range
// spec.
func Targets(spec pdfcombiner.RotationSpec, maxPages int) ([]int, error) {
	if spec.SelectsAll() {
		return All(maxPages), nil
	}
	return Parse(spec.Pages, maxPages)
}
