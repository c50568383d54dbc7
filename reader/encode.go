package reader

import (
	"bytes"
	"encoding/hex"
	"slices"
	"strconv"
)

// writeObject serializes obj in PDF syntax. Strings are always written in
// hexadecimal form and dictionary keys in sorted order, so output is
// deterministic.
func writeObject(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Boolean:
		buf.WriteString(v.String())
	case Integer:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		buf.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64))
	case Name:
		writeName(buf, v)
	case String:
		buf.WriteByte('<')
		buf.WriteString(hex.EncodeToString(v.Value))
		buf.WriteByte('>')
	case Reference:
		buf.WriteString(strconv.Itoa(v.Number))
		buf.WriteString(" ")
		buf.WriteString(strconv.Itoa(v.Generation))
		buf.WriteString(" R")
	case Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, item)
		}
		buf.WriteByte(']')
	case Dict:
		writeDict(buf, v)
	case Stream:
		writeDict(buf, v.Dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	}
}

func writeDict(buf *bytes.Buffer, d Dict) {
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	buf.WriteString("<<")
	for _, k := range keys {
		buf.WriteByte(' ')
		writeName(buf, k)
		buf.WriteByte(' ')
		writeObject(buf, d[k])
	}
	buf.WriteString(" >>")
}

// writeName writes a name, escaping bytes outside the regular character set
// as #hh.
func writeName(buf *bytes.Buffer, n Name) {
	const hexDigits = "0123456789ABCDEF"
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < 0x21 || c > 0x7E || c == '#' || isDelimiter(c) {
			buf.WriteByte('#')
			buf.WriteByte(hexDigits[c>>4])
			buf.WriteByte(hexDigits[c&0x0F])
			continue
		}
		buf.WriteByte(c)
	}
}
