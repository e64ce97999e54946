// Package merge holds the override-wins primitives used to combine layered
// configuration fragments.
//
// Every fragment type in kubeship merges field by field with one of these
// helpers. A field is "specified" when its pointer or slice is non-nil; maps
// merge key-wise with the incoming layer winning on collision.
package merge

import "maps"

// Value returns incoming if it is specified, base otherwise.
func Value[T any](base, incoming *T) *T {
	if incoming != nil {
		return incoming
	}
	return base
}

// Slice returns incoming if it is specified (non-nil, possibly empty), base otherwise.
// Slices are replaced whole, never concatenated.
func Slice[T any](base, incoming []T) []T {
	if incoming != nil {
		return incoming
	}
	return base
}

// Map returns the key-wise union of base and incoming. Incoming wins on key
// collisions. The inputs are not modified; nil is returned only when both are nil.
func Map[V any](base, incoming map[string]V) map[string]V {
	if base == nil && incoming == nil {
		return nil
	}
	out := make(map[string]V, len(base)+len(incoming))
	maps.Copy(out, base)
	maps.Copy(out, incoming)
	return out
}

// Fold applies fn left to right over layers, starting from the zero value.
// It is the fixed pipeline used to apply defaults → region → explicit layers.
func Fold[T any](fn func(base, incoming T) T, layers ...T) T {
	var out T
	for _, layer := range layers {
		out = fn(out, layer)
	}
	return out
}

// Ptr returns a pointer to v. It is handy for building fragments in code.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p or fallback when p is nil.
func Deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
