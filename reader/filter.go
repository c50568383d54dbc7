package reader

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/filter"
)

// decodeStream applies the filter chain specified in the stream dictionary.
func decodeStream(s Stream) ([]byte, error) {
	var filters []Name
	switch f := s.Dict["Filter"].(type) {
	case nil:
		return s.Data, nil
	case Name:
		filters = []Name{f}
	case Array:
		for _, item := range f {
			n, ok := item.(Name)
			if !ok {
				return nil, fmt.Errorf("reader: filter array contains non-name: %T", item)
			}
			filters = append(filters, n)
		}
	default:
		return nil, fmt.Errorf("reader: unexpected filter type: %T", f)
	}

	parms := decodeParms(s.Dict["DecodeParms"], len(filters))

	var r io.Reader = bytes.NewReader(s.Data)
	for i, name := range filters {
		fl, err := filter.NewFilter(string(name), parms[i])
		if err != nil {
			return nil, fmt.Errorf("reader: filter %s: %w", name, err)
		}
		if r, err = fl.Decode(r); err != nil {
			return nil, fmt.Errorf("reader: applying filter %s: %w", name, err)
		}
	}
	return io.ReadAll(r)
}

// decodeParms returns the integer decode parameters for each of n filters.
func decodeParms(obj Object, n int) []map[string]int {
	out := make([]map[string]int, n)
	switch p := obj.(type) {
	case Dict:
		if n > 0 {
			out[0] = intParms(p)
		}
	case Array:
		for i := 0; i < n && i < len(p); i++ {
			if d, ok := p[i].(Dict); ok {
				out[i] = intParms(d)
			}
		}
	}
	return out
}

func intParms(d Dict) map[string]int {
	m := make(map[string]int, len(d))
	for k, v := range d {
		switch x := v.(type) {
		case Integer:
			m[string(k)] = int(x)
		case Boolean:
			if x {
				m[string(k)] = 1
			} else {
				m[string(k)] = 0
			}
		}
	}
	return m
}
