package client

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric form field that tolerates the shapes a partially
// filled form produces: JSON numbers, numeric strings ("25,000" included),
// null, empty strings and garbage. Anything unusable decodes to an invalid
// Number whose Float is 0. Decoding never fails.
type Number struct {
	value float64
	valid bool
}

// N returns a valid Number holding v (invalid when v is NaN or infinite).
func N(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{value: v, valid: true}
}

// Valid reports whether the field held a usable number.
func (n Number) Valid() bool { return n.valid }

// Float returns the value, or 0 when the field was absent or malformed.
func (n Number) Float() float64 {
	if !n.valid {
		return 0
	}
	return n.value
}

// Or returns the value, or def when the field was absent or malformed.
func (n Number) Or(def float64) float64 {
	if !n.valid {
		return def
	}
	return n.value
}

// NonNegative returns max(0, Float()).
func (n Number) NonNegative() float64 {
	return math.Max(0, n.Float())
}

// Rounded returns the value rounded half away from zero to an integer.
func (n Number) Rounded() int64 {
	return int64(math.Round(n.Float()))
}

// MarshalJSON writes null for invalid numbers.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.value, 'f', -1, 64)), nil
}

// UnmarshalJSON implements lenient decoding. It never returns an error.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = parseNumber(data)
	return nil
}

func parseNumber(data []byte) Number {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Number{}
	}

	s := string(data)
	if data[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return Number{}
		}
		s = strings.ReplaceAll(strings.TrimSpace(unq), ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}
	}
	return N(v)
}

// Flag is a lenient boolean: true, "true", "yes", 1 and "1" are true,
// everything else (including absence) is false.
type Flag bool

// UnmarshalJSON implements lenient decoding. It never returns an error.
func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(string(data)), `"`))
	switch s {
	case "true", "yes", "1":
		*f = true
	default:
		if v, err := strconv.ParseFloat(s, 64); err == nil && v != 0 {
			*f = true
			return nil
		}
		*f = false
	}
	return nil
}

// Text is a lenient identifier: strings are kept, numbers are rendered in
// their shortest form, anything else is empty.
type Text string

// UnmarshalJSON implements lenient decoding. It never returns an error.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		s, err := strconv.Unquote(string(data))
		if err != nil {
			*t = ""
			return nil
		}
		*t = Text(s)
	default:
		if v, err := strconv.ParseFloat(string(data), 64); err == nil {
			*t = Text(strconv.FormatFloat(v, 'f', -1, 64))
			return nil
		}
		*t = ""
	}
	return nil
}
