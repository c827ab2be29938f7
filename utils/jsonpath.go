package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

var ErrTrailingData = errors.New("unexpected data after JSON document")

// DecodeJSON decodes exactly one document keeping numbers as json.Number.
func DecodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return doc, nil
}

// LookupPath walks a decoded JSON document along a dot separated path.
// Numeric segments index arrays; -1 selects the last element.
func LookupPath(doc any, path string) (any, bool) {
	if path == "" {
		return doc, doc != nil
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, false
			}
			if idx < 0 {
				idx = len(node) + idx
			}
			if idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// LookupString returns the value at path rendered as a trimmed, non-empty string.
func LookupString(doc any, path string) (string, bool) {
	v, ok := LookupPath(doc, path)
	if !ok {
		return "", false
	}
	s := ScalarString(v)
	return s, s != ""
}

// LookupFloat returns the value at path as a float64 when it is numeric or a numeric string.
func LookupFloat(doc any, path string) (float64, bool) {
	v, ok := LookupPath(doc, path)
	if !ok {
		return 0, false
	}
	return ScalarFloat(v)
}

// ScalarString renders JSON scalars as strings; objects and arrays yield "".
func ScalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// ScalarFloat converts numeric JSON scalars (and numeric strings) to float64.
func ScalarFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ScalarBool interprets JSON booleans, numbers and common string spellings.
func ScalarBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		switch s {
		case "", "0", "false", "no", "none", "off", "null":
			return false
		}
		return true
	default:
		return false
	}
}
