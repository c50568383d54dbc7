package reader

import (
	"fmt"
	"strconv"
)

// objectStream is a decoded /Type /ObjStm stream.
type objectStream struct {
	data    []byte
	offsets map[int]int // object number to offset within data
}

// readCompressed parses object num stored at position index of object
// stream stmNum. Objects inside object streams are never encrypted on their
// own; the stream that holds them is.
func (d *Document) readCompressed(num, stmNum, index int) (Object, error) {
	stm, err := d.objectStream(stmNum)
	if err != nil {
		return nil, fmt.Errorf("reader: object %d in stream %d: %w", num, stmNum, err)
	}
	off, ok := stm.offsets[num]
	if !ok || off < 0 || off >= len(stm.data) {
		return nil, fmt.Errorf("reader: object %d (index %d) missing from stream %d", num, index, stmNum)
	}

	p := newParser(stm.data[off:])
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("reader: parsing object %d in stream %d: %w", num, stmNum, err)
	}
	return obj, nil
}

func (d *Document) objectStream(num int) (*objectStream, error) {
	if stm, ok := d.objStms[num]; ok {
		return stm, nil
	}

	obj, err := d.resolve(Reference{Number: num})
	if err != nil {
		return nil, err
	}
	s, ok := obj.(Stream)
	if !ok || s.Dict.GetName("Type") != "ObjStm" {
		return nil, fmt.Errorf("object %d is not an object stream", num)
	}
	n, _ := s.Dict.GetInt("N")
	first, _ := s.Dict.GetInt("First")

	data, err := decodeStream(s)
	if err != nil {
		return nil, err
	}
	if first < 0 || int(first) > len(data) {
		return nil, fmt.Errorf("object stream %d: /First %d out of bounds", num, first)
	}

	// The header is N pairs of "objnum offset", offsets relative to /First.
	header := newParser(data[:first])
	stm := &objectStream{data: data, offsets: make(map[int]int, n)}
	for i := int64(0); i < n; i++ {
		objNum, err1 := strconv.Atoi(header.readToken())
		off, err2 := strconv.Atoi(header.readToken())
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("object stream %d: malformed header entry %d", num, i)
		}
		stm.offsets[objNum] = int(first) + off
	}

	d.objStms[num] = stm
	return stm, nil
}
