// Package taint provides the provenance classification attached to nodes of
// the analyzed source tree. It is a three-value lattice: values proven to be
// input-independent are Safe, values known to derive from untrusted input are
// Tainted, and everything else stays Unknown.
package taint

// Class is the taint classification of a value. The zero value is Unknown so
// freshly constructed nodes start unclassified.
type Class int

const (
	// Unknown means provenance has not been established.
	Unknown Class = iota
	// Safe means the value is constant with respect to program input.
	Safe
	// Tainted means the value derives from untrusted input.
	Tainted
)

// Combine merges two classifications. Tainted absorbs everything, Unknown
// absorbs Safe. The operation is associative and commutative, so nodes with
// multiple children can fold their children's classes in any order.
func Combine(a, b Class) Class {
	if a == Tainted || b == Tainted {
		return Tainted
	}
	if a == Unknown || b == Unknown {
		return Unknown
	}
	return Safe
}

// Add is Combine as a method, convenient for folding.
func (c Class) Add(other Class) Class {
	return Combine(c, other)
}

func (c Class) String() string {
	switch c {
	case Safe:
		return "SAFE"
	case Tainted:
		return "TAINTED"
	default:
		return "UNKNOWN"
	}
}
