package pdfcombiner

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document information keys, in the order they are written.
const (
	KeyTitle        = "/Title"
	KeyAuthor       = "/Author"
	KeySubject      = "/Subject"
	KeyCreator      = "/Creator"
	KeyProducer     = "/Producer"
	KeyKeywords     = "/Keywords"
	KeyCreationDate = "/CreationDate"
	KeyModDate      = "/ModDate"
)

// datePrefix is the literal prefix of PDF date strings.
const datePrefix = "D:"

// Metadata is the document information applied to the combined output.
// Empty fields are left out of the output. Dates use the PDF layout
// YYYYMMDDHHmmSS, optionally truncated, prefixed with "D:" and followed by a
// time zone.
type Metadata struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	CreationDate string `json:"creation_date,omitempty"`
	ModDate      string `json:"mod_date,omitempty"`
}

// Validate checks that the date fields parse.
func (m Metadata) Validate() error {
	dates := [...]struct{ key, value string }{
		{KeyCreationDate, m.CreationDate},
		{KeyModDate, m.ModDate},
	}
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		if _, err := ParseDate(d.value); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}
	return nil
}

// Applied returns the non-empty fields keyed by their document information
// key. Dates are given in the form written to the output, see FormatDate.
// Unparseable dates are passed through; Validate reports them.
func (m Metadata) Applied() map[string]string {
	out := make(map[string]string)
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put(KeyTitle, m.Title)
	put(KeyAuthor, m.Author)
	put(KeySubject, m.Subject)
	put(KeyCreator, m.Creator)
	put(KeyProducer, m.Producer)
	put(KeyKeywords, m.Keywords)
	put(KeyCreationDate, writtenDate(m.CreationDate))
	put(KeyModDate, writtenDate(m.ModDate))
	return out
}

func writtenDate(s string) string {
	if s == "" {
		return ""
	}
	t, err := ParseDate(s)
	if err != nil {
		return datePrefix + StripDatePrefix(s)
	}
	return FormatDate(t)
}

// FormatDate returns t the way it is stored in the output: all fourteen
// digits in t's own zone, without a zone suffix.
func FormatDate(t time.Time) string {
	return datePrefix + t.Format("20060102150405")
}

// IsEmpty reports whether no field is set.
func (m Metadata) IsEmpty() bool {
	return m == Metadata{}
}

// StripDatePrefix removes a leading "D:" from a PDF date string.
func StripDatePrefix(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), datePrefix)
}

// ParseDate parses a PDF date string: D:YYYYMMDDHHmmSSOHH'mm where everything
// after the year is optional and O is one of Z, + or -. Dates without a zone
// are read in local time.
func ParseDate(s string) (time.Time, error) {
	v := StripDatePrefix(s)
	n := 0
	for n < len(v) && n < 14 && v[n] >= '0' && v[n] <= '9' {
		n++
	}
	if n < 4 || n%2 != 0 {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	digits, zone := v[:n], v[n:]

	// Pad missing components with their minimum: month and day 01, the rest 00.
	padded := digits + "0101000000"[n-4:]
	loc, err := parseZone(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
	}
	t, err := time.ParseInLocation("20060102150405", padded, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	return t, nil
}

func parseZone(z string) (*time.Location, error) {
	z = strings.TrimSuffix(z, "'")
	switch {
	case z == "":
		return time.Local, nil
	case z == "Z" || strings.HasPrefix(z, "Z0"):
		return time.UTC, nil
	case z[0] != '+' && z[0] != '-':
		return nil, fmt.Errorf("unexpected zone %q", z)
	}
	parts := strings.SplitN(z[1:], "'", 2)
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh > 23 {
		return nil, fmt.Errorf("bad zone hour %q", parts[0])
	}
	mm := 0
	if len(parts) == 2 && parts[1] != "" {
		if mm, err = strconv.Atoi(parts[1]); err != nil || mm > 59 {
			return nil, fmt.Errorf("bad zone minute %q", parts[1])
		}
	}
	offset := hh*3600 + mm*60
	if z[0] == '-' {
		offset = -offset
	}
	return time.FixedZone("", offset), nil
}
