// Package limits resolves caller-supplied row limits against
// per-surface defaults and caps.
package limits

// Class is the limit policy for one request surface.
type Class struct {
	// Default is used when the caller omits the limit or asks for
	// something out of range.
	Default int

	// Max is the largest limit a caller may request.
	Max int
}

// Preview bounds row counts for table preview requests.
var Preview = Class{Default: 10, Max: 100}

// Query bounds row counts for ad-hoc read queries.
var Query = Class{Default: 1000, Max: 5000}

// Effective resolves a requested limit against the class policy. Zero,
// negative, and over-cap requests all resolve to the class default,
// not to the cap.
func (c Class) Effective(requested int) int {
	if requested <= 0 || requested > c.Max {
		return c.Default
	}
	return requested
}
