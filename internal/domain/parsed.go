package domain

// Parsed carries the outcome of a best-effort parse: either a value read from
// the source, or a default substituted for a stated reason.
type Parsed[T any] struct {
	Value     T
	Defaulted bool
	Reason    string
}

// ParsedValue wraps a value read from the source.
func ParsedValue[T any](v T) Parsed[T] {
	return Parsed[T]{Value: v}
}

// DefaultedValue wraps a fallback value and the reason it was used.
func DefaultedValue[T any](v T, reason string) Parsed[T] {
	return Parsed[T]{Value: v, Defaulted: true, Reason: reason}
}
