package reader

import (
	"bytes"
	"fmt"
	"strconv"
)

type entryKind int

const (
	entryFree entryKind = iota
	entryInUse
	entryCompressed // stored inside an object stream
)

// xrefEntry represents a single cross-reference entry. For compressed
// entries Offset holds the object stream number and Generation the index
// within that stream.
type xrefEntry struct {
	Kind       entryKind
	Offset     int64
	Generation int
}

// xrefTable maps object numbers to their locations.
type xrefTable map[int]xrefEntry

// maxXRefSections bounds /Prev chains so a looping chain cannot hang parsing.
const maxXRefSections = 64

// findStartXRef locates the "startxref" position from the end of the file.
func findStartXRef(data []byte) (int64, error) {
	searchLen := min(2048, len(data))
	tail := data[len(data)-searchLen:]

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("reader: startxref not found")
	}

	p := newParser(tail[idx+len("startxref"):])
	tok := p.readToken()
	offset, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("reader: invalid startxref offset %q: %w", tok, err)
	}
	return offset, nil
}

// readXRef reads the cross-reference section at offset and every section
// reachable through /Prev. Newer sections take precedence. The returned
// trailer is the newest one.
func readXRef(data []byte, offset int64) (xrefTable, Dict, error) {
	table := make(xrefTable)
	var trailer Dict
	seen := make(map[int64]bool)

	for section := 0; ; section++ {
		if section == maxXRefSections || seen[offset] {
			return nil, nil, fmt.Errorf("reader: cross-reference chain loops at offset %d", offset)
		}
		seen[offset] = true

		part, dict, err := readXRefSection(data, offset)
		if err != nil {
			return nil, nil, err
		}
		// Hybrid files keep compressed entries in a stream named by /XRefStm.
		if stm, ok := dict.GetInt("XRefStm"); ok && !seen[stm] {
			seen[stm] = true
			if extra, _, err := parseXRefStream(data, stm); err == nil {
				merge(part, extra)
			}
		}
		merge(table, part)
		if trailer == nil {
			trailer = dict
		}

		prev, ok := dict.GetInt("Prev")
		if !ok {
			break
		}
		offset = prev
	}

	for _, key := range []Name{"Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length"} {
		delete(trailer, key)
	}
	return table, trailer, nil
}

// merge copies entries from src that dst does not define yet.
func merge(dst, src xrefTable) {
	for num, entry := range src {
		if _, exists := dst[num]; !exists {
			dst[num] = entry
		}
	}
}

// readXRefSection parses either a classic table or a cross-reference stream.
func readXRefSection(data []byte, offset int64) (xrefTable, Dict, error) {
	if offset < 0 || int(offset) >= len(data) {
		return nil, nil, fmt.Errorf("reader: xref offset %d out of bounds", offset)
	}
	p := newParserAt(data, int(offset))
	if p.readToken() != "xref" {
		return parseXRefStream(data, offset)
	}
	return parseXRefTable(p)
}

// parseXRefTable parses a classic table after the "xref" keyword.
func parseXRefTable(p *parser) (xrefTable, Dict, error) {
	table := make(xrefTable)
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			return nil, nil, fmt.Errorf("reader: xref table without trailer")
		}

		saved := p.pos
		if p.readToken() == "trailer" {
			break
		}
		p.pos = saved

		startObj, err := strconv.Atoi(p.readToken())
		if err != nil {
			return nil, nil, fmt.Errorf("reader: xref subsection start: %w", err)
		}
		count, err := strconv.Atoi(p.readToken())
		if err != nil {
			return nil, nil, fmt.Errorf("reader: xref subsection count: %w", err)
		}

		for i := 0; i < count; i++ {
			offset, err := strconv.ParseInt(p.readToken(), 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("reader: xref entry offset: %w", err)
			}
			gen, err := strconv.Atoi(p.readToken())
			if err != nil {
				return nil, nil, fmt.Errorf("reader: xref entry generation: %w", err)
			}
			kind := entryFree
			if p.readToken() == "n" {
				kind = entryInUse
			}

			objNum := startObj + i
			if _, exists := table[objNum]; !exists {
				table[objNum] = xrefEntry{Kind: kind, Offset: offset, Generation: gen}
			}
		}
	}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, nil, fmt.Errorf("reader: trailer dict: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, nil, fmt.Errorf("reader: trailer is not a dictionary")
	}
	return table, trailer, nil
}

// parseXRefStream parses a cross-reference stream (PDF 1.5+). Its
// dictionary doubles as the trailer.
func parseXRefStream(data []byte, offset int64) (xrefTable, Dict, error) {
	if offset < 0 || int(offset) >= len(data) {
		return nil, nil, fmt.Errorf("reader: xref stream offset %d out of bounds", offset)
	}
	p := newParserAt(data, int(offset))
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, nil, fmt.Errorf("reader: xref stream object: %w", err)
	}

	stream, ok := obj.Value.(Stream)
	if !ok || stream.Dict.GetName("Type") != "XRef" {
		return nil, nil, fmt.Errorf("reader: no cross-reference data at offset %d", offset)
	}

	decoded, err := decodeStream(stream)
	if err != nil {
		return nil, nil, fmt.Errorf("reader: decoding xref stream: %w", err)
	}

	wArr := stream.Dict.GetArray("W")
	if len(wArr) != 3 {
		return nil, nil, fmt.Errorf("reader: xref stream /W must have 3 elements")
	}
	var widths [3]int
	for i, w := range wArr {
		n, _ := w.(Integer)
		if n < 0 || n > 8 {
			return nil, nil, fmt.Errorf("reader: xref stream /W[%d] = %d", i, n)
		}
		widths[i] = int(n)
	}
	entrySize := widths[0] + widths[1] + widths[2]
	if entrySize == 0 {
		return nil, nil, fmt.Errorf("reader: xref stream has zero-width entries")
	}

	// /Index defaults to [0 Size]
	var indices []int
	for _, v := range stream.Dict.GetArray("Index") {
		if n, ok := v.(Integer); ok {
			indices = append(indices, int(n))
		}
	}
	if indices == nil {
		size, _ := stream.Dict.GetInt("Size")
		indices = []int{0, int(size)}
	}

	table := make(xrefTable)
	pos := 0
	for i := 0; i+1 < len(indices); i += 2 {
		start, count := indices[i], indices[i+1]
		for j := 0; j < count && pos+entrySize <= len(decoded); j++ {
			var fields [3]int64
			for f := 0; f < 3; f++ {
				for k := 0; k < widths[f]; k++ {
					fields[f] = fields[f]<<8 | int64(decoded[pos])
					pos++
				}
			}
			// The type field defaults to 1 when its width is 0.
			if widths[0] == 0 {
				fields[0] = 1
			}

			var entry xrefEntry
			switch fields[0] {
			case 0:
				entry = xrefEntry{Kind: entryFree, Generation: int(fields[2])}
			case 1:
				entry = xrefEntry{Kind: entryInUse, Offset: fields[1], Generation: int(fields[2])}
			case 2:
				entry = xrefEntry{Kind: entryCompressed, Offset: fields[1], Generation: int(fields[2])}
			default:
				continue // reserved types are treated as null references
			}
			if _, exists := table[start+j]; !exists {
				table[start+j] = entry
			}
		}
	}

	return table, stream.Dict, nil
}
