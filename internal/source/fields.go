package source

import (
	"strconv"
	"strings"
)

// Numeric fields outside [0, maxNumericValue] are discarded rather than
// stored; upstream feeds occasionally emit negative placeholders and
// overflow garbage.
const maxNumericValue = 1e15

// StringField resolves the first present, non-empty string among the given
// aliases, in order. Numeric values are rendered to strings so CSV rows that
// parse ids as numbers still resolve.
func StringField(rec Record, aliases ...string) (string, bool) {
	for _, key := range aliases {
		raw, ok := rec[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, true
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case int:
			return strconv.Itoa(v), true
		case int64:
			return strconv.FormatInt(v, 10), true
		}
	}
	return "", false
}

// FloatField resolves the first present numeric value among the given
// aliases. String values are parsed; unparseable or absent values yield nil.
func FloatField(rec Record, aliases ...string) *float64 {
	for _, key := range aliases {
		raw, ok := rec[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return &v
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				continue
			}
			return &f
		}
	}
	return nil
}

// ClampRange drops values outside the accepted numeric range. The record as a
// whole is kept; only the offending field becomes absent.
func ClampRange(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > maxNumericValue {
		return nil
	}
	return v
}

// NestedMap descends into nested provider payloads (e.g. quotes -> USD).
func NestedMap(rec Record, keys ...string) (Record, bool) {
	current := rec
	for _, key := range keys {
		raw, ok := current[key]
		if !ok {
			return nil, false
		}
		next, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}
