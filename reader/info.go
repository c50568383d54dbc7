package reader

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Info holds the document information dictionary. Values are decoded text
// strings. Dates are kept in their raw PDF form ("D:20240131120000Z").
type Info struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate string
	ModDate      string
}

// Info returns the document information dictionary. Missing entries are
// empty.
func (d *Document) Info() Info {
	m := d.Metadata()
	return Info{
		Title:        m["Title"],
		Author:       m["Author"],
		Subject:      m["Subject"],
		Keywords:     m["Keywords"],
		Creator:      m["Creator"],
		Producer:     m["Producer"],
		CreationDate: m["CreationDate"],
		ModDate:      m["ModDate"],
	}
}

var infoKeys = []Name{"Title", "Author", "Subject", "Keywords", "Creator", "Producer", "CreationDate", "ModDate"}

// Metadata returns document metadata from the /Info dictionary keyed by
// entry name without the leading slash.
func (d *Document) Metadata() map[string]string {
	meta := make(map[string]string)
	if d.usable() != nil {
		return meta
	}

	obj, err := d.resolveIfRef(d.trailer["Info"])
	if err != nil {
		return meta
	}
	info, ok := obj.(Dict)
	if !ok {
		return meta
	}

	for _, key := range infoKeys {
		v, err := d.resolveIfRef(info[key])
		if err != nil {
			continue
		}
		if s, ok := v.(String); ok {
			meta[string(key)] = decodeTextString(s.Value)
		}
	}
	return meta
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeTextString decodes a PDF text string: UTF-16BE with a byte order
// mark, UTF-8 with a byte order mark, or PDFDocEncoding otherwise.
func decodeTextString(b []byte) string {
	switch {
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err == nil {
			return string(out)
		}
	case bytes.HasPrefix(b, utf8BOM):
		return string(b[len(utf8BOM):])
	}
	// PDFDocEncoding agrees with Latin-1 outside the rarely used 0x80-0x9F block.
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
