// Package ptr has the generic helpers behind the optional config fields,
// where a nil pointer means "not set at this layer".
package ptr

// FromValue boxes v.
func FromValue[T any](v T) *T {
	return &v
}

// Clone copies the value x points to into a new allocation. nil stays nil.
func Clone[T any](x *T) *T {
	if x == nil {
		return nil
	}

	return FromValue(*x)
}

// CloneOr prefers x and falls back to fallback; the result never aliases
// either argument.
func CloneOr[T any](x *T, fallback *T) *T {
	if x != nil {
		return Clone(x)
	}

	return Clone(fallback)
}

// FromPtrOr unboxes x, using v for an unset field.
func FromPtrOr[T any](x *T, v T) T {
	if x != nil {
		return *x
	}

	return v
}
