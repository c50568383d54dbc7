package reader

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
)

// droppedPageKeys are removed from exported pages. They point back into the
// source structure (Parent, Annots, B, StructParents) or are rendered by the
// caller (Rotate).
var droppedPageKeys = []Name{"Parent", "Rotate", "Annots", "B", "StructParents"}

// objectWriter copies the objects reachable from a set of roots into a new,
// densely numbered object set.
type objectWriter struct {
	doc     *Document
	renum   map[int]int // source object number to exported number
	objects []Object    // exported objects, index = number-1
	queue   []Reference // source objects waiting to be copied

	// pagesOnly nulls references into the document structure so that only
	// the exported pages and what they use are carried over.
	pagesOnly bool
}

// WritePlain writes an unencrypted, self-contained copy of the document's
// pages to w: a new catalog and a flat page tree referencing every page in
// order, each page carrying its inherited MediaBox, CropBox and Resources.
// Page rotation and annotations are not exported. Stream data is written
// decrypted with its filters left in place.
func (d *Document) WritePlain(w io.Writer) error {
	if err := d.usable(); err != nil {
		return err
	}
	if len(d.pages) == 0 {
		return fmt.Errorf("reader: document has no pages")
	}

	ow := &objectWriter{doc: d, renum: make(map[int]int), pagesOnly: true}

	// 1 is the catalog, 2 the page tree, pages follow in order.
	kids := make(Array, len(d.pages))
	ow.objects = make([]Object, 2+len(d.pages))
	for i, page := range d.pages {
		num := 3 + i
		ow.renum[page.Ref.Number] = num
		kids[i] = Reference{Number: num}
	}
	ow.objects[0] = Dict{"Type": Name("Catalog"), "Pages": Reference{Number: 2}}
	ow.objects[1] = Dict{"Type": Name("Pages"), "Kids": kids, "Count": Integer(len(d.pages))}

	for i, page := range d.pages {
		dict := page.attrs.clone()
		for _, key := range droppedPageKeys {
			delete(dict, key)
		}
		copied, err := ow.copy(dict)
		if err != nil {
			return fmt.Errorf("reader: exporting page %d: %w", page.Number, err)
		}
		pd := copied.(Dict)
		pd["Type"] = Name("Page")
		pd["Parent"] = Reference{Number: 2}
		ow.objects[2+i] = pd
	}

	if err := ow.drain(); err != nil {
		return err
	}
	return ow.write(w, Dict{"Root": Reference{Number: 1}}, nil)
}

// drain copies queued objects until the reachable set is complete.
func (ow *objectWriter) drain() error {
	for len(ow.queue) > 0 {
		ref := ow.queue[0]
		ow.queue = ow.queue[1:]

		obj, err := ow.doc.resolve(ref)
		if err != nil {
			return fmt.Errorf("reader: exporting object %d: %w", ref.Number, err)
		}
		copied, err := ow.copy(obj)
		if err != nil {
			return fmt.Errorf("reader: exporting object %d: %w", ref.Number, err)
		}
		ow.objects[ow.renum[ref.Number]-1] = copied
	}
	return nil
}

// copy returns obj with every reference renumbered, queueing objects seen
// for the first time.
func (ow *objectWriter) copy(obj Object) (Object, error) {
	switch v := obj.(type) {
	case Reference:
		return ow.mapRef(v)
	case Array:
		out := make(Array, len(v))
		for i, item := range v {
			c, err := ow.copy(item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case Dict:
		// Sorted keys keep the numbering of queued objects stable.
		out := make(Dict, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			c, err := ow.copy(v[k])
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case Stream:
		c, err := ow.copy(v.Dict)
		if err != nil {
			return nil, err
		}
		dict := c.(Dict)
		dict["Length"] = Integer(len(v.Data))
		return Stream{Dict: dict, Data: v.Data}, nil
	case nil:
		return Null{}, nil
	}
	return obj, nil
}

// mapRef renumbers a reference. In pages-only mode references to pages of
// this document keep pointing at the exported page and references into the
// rest of the document structure (page tree nodes, the catalog) become null.
func (ow *objectWriter) mapRef(ref Reference) (Object, error) {
	if num, ok := ow.renum[ref.Number]; ok {
		return Reference{Number: num}, nil
	}

	target, err := ow.doc.resolve(ref)
	if err != nil {
		return nil, err
	}
	if _, isNull := target.(Null); isNull {
		return Null{}, nil
	}
	if t, ok := target.(Dict); ok && ow.pagesOnly {
		if typ := t.GetName("Type"); typ == "Pages" || typ == "Catalog" || typ == "Page" {
			return Null{}, nil
		}
	}

	ow.objects = append(ow.objects, nil)
	num := len(ow.objects)
	ow.renum[ref.Number] = num
	ow.queue = append(ow.queue, ref)
	return Reference{Number: num}, nil
}

// write serializes the collected objects with a classic xref table. The
// trailer gets /Size added. A non-nil encrypt transforms each object before
// it is written.
func (ow *objectWriter) write(w io.Writer, trailer Dict, encrypt func(num int, obj Object) (Object, error)) error {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")

	offsets := make([]int, len(ow.objects))
	for i, obj := range ow.objects {
		if encrypt != nil {
			var err error
			if obj, err = encrypt(i+1, obj); err != nil {
				return fmt.Errorf("reader: encrypting object %d: %w", i+1, err)
			}
		}
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		writeObject(&buf, obj)
		buf.WriteString("\nendobj\n")
	}

	xrefAt := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(ow.objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	trailer["Size"] = Integer(len(ow.objects) + 1)
	buf.WriteString("trailer\n")
	writeObject(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefAt)

	_, err := w.Write(buf.Bytes())
	return err
}
