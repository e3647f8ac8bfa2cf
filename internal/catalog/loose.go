package catalog

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The upstream catalog is loosely typed: numbers arrive as strings, lists as
// single values, and ids as numbers. These types absorb that at decode time
// and never fail, so one odd field cannot reject a whole page.

// looseString accepts a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err == nil {
			*s = looseString(strings.TrimSpace(v))
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*s = looseString(data)
	}
	return nil
}

// looseNumber accepts a finite JSON number or a numeric string. Anything else
// decodes as absent.
type looseNumber struct {
	value float64
	valid bool
}

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	*n = looseNumber{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = looseNumber{value: v, valid: true}
	return nil
}

func (n looseNumber) ptr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.value
	return &v
}

// maxCount bounds every count read from the catalog so hostile values
// cannot overflow int.
const maxCount = math.MaxInt32

// intOr truncates the number to an int clamped to ±maxCount, or returns def
// when absent.
func (n looseNumber) intOr(def int) int {
	if !n.valid {
		return def
	}
	return int(math.Max(-maxCount, math.Min(maxCount, n.value)))
}

// looseBool is true for JSON true, non-zero numbers and "true"/"1" strings.
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	switch s := strings.Trim(string(bytes.TrimSpace(data)), `"`); strings.ToLower(s) {
	case "true", "1":
		*b = true
	default:
		v, err := strconv.ParseFloat(s, 64)
		*b = looseBool(err == nil && v != 0)
	}
	return nil
}

// looseList accepts an array, a single element, or null. Elements that fail
// to decode are skipped.
type looseList[T any] []T

func (l *looseList[T]) UnmarshalJSON(data []byte) error {
	*l = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '[' {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			*l = looseList[T]{v}
		}
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil
	}
	out := make(looseList[T], 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// firstNonEmpty returns the first non-blank value.
func firstNonEmpty(values ...looseString) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

// firstNumber returns the first present numeric value.
func firstNumber(values ...looseNumber) *float64 {
	for _, v := range values {
		if v.valid {
			return v.ptr()
		}
	}
	return nil
}
