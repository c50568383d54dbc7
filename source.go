// Package pdfcombiner holds the types shared by the document assembly
// packages: source entries, rotation settings, output metadata and the error
// taxonomy.
//
// The work itself is split across subpackages:
//
//   - pagerange resolves page range specs and rotation targets
//   - reader opens and decrypts source documents
//   - access runs the password retry protocol for locked documents
//   - pageops places selected pages into the output document
//   - assemble runs the transactional combine
//   - session keeps the ordered source list a front end edits
//   - history persists the log of produced documents
package pdfcombiner

import (
	"fmt"
	"strings"
)

// AllPages is the rotation page selector that targets every page.
const AllPages = "all"

// RotationSpec rotates a selection of a source's pages by Angle degrees,
// relative to the orientation stored in the source file.
type RotationSpec struct {
	Angle int    `json:"angle"` // 90, 180 or 270
	Pages string `json:"pages"` // "all" or a page range spec
}

// Validate checks the angle. The page selector can only be checked against a
// document's page count, see pagerange.Targets.
func (r RotationSpec) Validate() error {
	switch r.Angle {
	case 90, 180, 270:
		return nil
	}
	return fmt.Errorf("%w, got %d", ErrInvalidAngle, r.Angle)
}

// SelectsAll reports whether the selector is "all", ignoring case.
func (r RotationSpec) SelectsAll() bool {
	return strings.EqualFold(strings.TrimSpace(r.Pages), AllPages)
}

func (r RotationSpec) String() string {
	return fmt.Sprintf("%d° on %s", r.Angle, r.Pages)
}

// SourceEntry is one input document and its page selection. Its position in
// a list is its position in the combined output.
type SourceEntry struct {
	Path      string        `json:"path"`
	PageRange string        `json:"pages,omitempty"` // empty selects every page
	Rotation  *RotationSpec `json:"rotation,omitempty"`
}

// Clone returns a deep copy of the entry.
func (s SourceEntry) Clone() SourceEntry {
	if s.Rotation != nil {
		r := *s.Rotation
		s.Rotation = &r
	}
	return s
}
