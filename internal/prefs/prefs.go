package prefs

import (
	"context"
	"maps"
	"slices"
	"strconv"
)

// Values is an opaque key/value preference set. Keys are dotted paths such
// as "Sound.recordDuration".
type Values map[string]string

// Store persists preference values.
type Store interface {
	// Read returns the stored values; a store that was never written yields
	// an empty set.
	Read(ctx context.Context) (Values, error)
	// Write replaces the stored values with v.
	Write(ctx context.Context, v Values) error
}

func (v Values) Get(key, def string) string {
	if s, ok := v[key]; ok {
		return s
	}
	return def
}

func (v Values) Set(key, value string) {
	v[key] = value
}

// Int returns key as an integer, or def when missing or malformed.
func (v Values) Int(key string, def int) int {
	s, ok := v[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func (v Values) SetInt(key string, n int) {
	v[key] = strconv.Itoa(n)
}

// Bool returns key as a boolean, or def when missing or malformed.
func (v Values) Bool(key string, def bool) bool {
	s, ok := v[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func (v Values) SetBool(key string, b bool) {
	v[key] = strconv.FormatBool(b)
}

// Merge copies every entry of other into v.
func (v Values) Merge(other Values) {
	maps.Copy(v, other)
}

// Keys returns the keys in sorted order.
func (v Values) Keys() []string {
	return slices.Sorted(maps.Keys(v))
}
