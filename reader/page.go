package reader

import (
	"fmt"
)

// Rectangle represents a PDF rectangle (typically [llx lly urx ury]).
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns the width of the rectangle.
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the height of the rectangle.
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// Page represents a single page in a PDF document.
type Page struct {
	Number   int // 1-based position in the document
	Ref      Reference
	MediaBox Rectangle
	CropBox  *Rectangle
	Rotate   int  // clockwise, one of 0, 90, 180, 270
	attrs    Dict // page dictionary with inherited attributes merged in
}

// Size returns the width and height of the page as displayed, that is with
// its rotation applied.
func (p *Page) Size() (w, h float64) {
	w, h = p.MediaBox.Width(), p.MediaBox.Height()
	if p.Rotate == 90 || p.Rotate == 270 {
		return h, w
	}
	return w, h
}

// NormalizeRotation maps any multiple of 90 degrees, negative ones
// included, into 0..270. Other values yield 0.
func NormalizeRotation(deg int) int {
	if deg%90 != 0 {
		return 0
	}
	return (deg%360 + 360) % 360
}

// Rotate adds delta degrees to the current rotation of page n (1-based).
// The change only affects this in-memory document.
func (d *Document) Rotate(n, delta int) error {
	if delta%90 != 0 {
		return fmt.Errorf("reader: rotation %d is not a multiple of 90", delta)
	}
	page, err := d.Page(n)
	if err != nil {
		return err
	}
	page.Rotate = NormalizeRotation(page.Rotate + delta)
	return nil
}

// parseRectangle parses a PDF rectangle array [llx lly urx ury].
func parseRectangle(obj Object) (Rectangle, error) {
	arr, ok := obj.(Array)
	if !ok || len(arr) != 4 {
		return Rectangle{}, fmt.Errorf("reader: rectangle must be a 4-element array")
	}

	var vals [4]float64
	for i, v := range arr {
		n, ok := number(v)
		if !ok {
			return Rectangle{}, fmt.Errorf("reader: rectangle element %d is not numeric", i)
		}
		vals[i] = n
	}
	// Normalize so that LL is the lower-left corner.
	r := Rectangle{LLX: min(vals[0], vals[2]), LLY: min(vals[1], vals[3]),
		URX: max(vals[0], vals[2]), URY: max(vals[1], vals[3])}
	return r, nil
}

// inheritable lists the page attributes a page inherits from its ancestors.
var inheritable = []Name{"MediaBox", "CropBox", "Resources", "Rotate"}

// buildPageList traverses the page tree and returns a flat list of pages.
func (d *Document) buildPageList() error {
	rootObj, err := d.resolveIfRef(d.trailer["Root"])
	if err != nil {
		return fmt.Errorf("reader: resolving root: %w", err)
	}
	catalog, ok := rootObj.(Dict)
	if !ok {
		return fmt.Errorf("reader: missing /Root in trailer")
	}

	pagesRef, ok := catalog["Pages"].(Reference)
	if !ok {
		return fmt.Errorf("reader: /Pages is not a reference")
	}
	pagesObj, err := d.resolve(pagesRef)
	if err != nil {
		return fmt.Errorf("reader: resolving /Pages: %w", err)
	}
	pagesDict, ok := pagesObj.(Dict)
	if !ok {
		return fmt.Errorf("reader: /Pages is not a dictionary")
	}

	d.pages = nil
	visited := map[int]bool{pagesRef.Number: true}
	return d.traversePageTree(pagesRef, pagesDict, nil, visited)
}

// traversePageTree recursively traverses the page tree collecting leaf pages.
func (d *Document) traversePageTree(ref Reference, node Dict, inherited Dict, visited map[int]bool) error {
	merged := make(Dict, len(inherited))
	for k, v := range inherited {
		merged[k] = v
	}
	for _, key := range inheritable {
		if v, ok := node[key]; ok {
			merged[key] = v
		}
	}

	if node.GetName("Type") == "Page" || (node.GetName("Type") == "" && node["Kids"] == nil) {
		return d.addPage(ref, node, merged)
	}

	kidsObj, err := d.resolveIfRef(node["Kids"])
	if err != nil {
		return fmt.Errorf("reader: resolving /Kids: %w", err)
	}
	kids, _ := kidsObj.(Array)

	for _, kid := range kids {
		kidRef, ok := kid.(Reference)
		if !ok {
			continue
		}
		if visited[kidRef.Number] {
			return fmt.Errorf("reader: page tree cycle at object %d", kidRef.Number)
		}
		visited[kidRef.Number] = true

		kidObj, err := d.resolve(kidRef)
		if err != nil {
			return fmt.Errorf("reader: resolving page tree kid: %w", err)
		}
		kidDict, ok := kidObj.(Dict)
		if !ok {
			continue
		}
		if err := d.traversePageTree(kidRef, kidDict, merged, visited); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) addPage(ref Reference, node, inherited Dict) error {
	page := &Page{
		Number: len(d.pages) + 1,
		Ref:    ref,
		attrs:  node.clone(),
	}
	for _, key := range inheritable {
		if v, ok := inherited[key]; ok {
			page.attrs[key] = v
		}
	}

	mb, err := d.resolveIfRef(page.attrs["MediaBox"])
	if err == nil {
		page.MediaBox, err = parseRectangle(mb)
	}
	if err != nil {
		// US Letter is the conventional default for a missing MediaBox.
		page.MediaBox = Rectangle{URX: 612, URY: 792}
		page.attrs["MediaBox"] = Array{Integer(0), Integer(0), Integer(612), Integer(792)}
	}

	if cb, ok := page.attrs["CropBox"]; ok {
		if resolved, err := d.resolveIfRef(cb); err == nil {
			if rect, err := parseRectangle(resolved); err == nil {
				page.CropBox = &rect
			}
		}
	}

	if rot, err := d.resolveIfRef(page.attrs["Rotate"]); err == nil {
		if n, ok := number(rot); ok {
			page.Rotate = NormalizeRotation(int(n))
		}
	}

	d.pages = append(d.pages, page)
	return nil
}
