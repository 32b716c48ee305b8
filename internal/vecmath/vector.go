// ABOUTME: Small fixed-length vector helpers for resource-space geometry
// ABOUTME: Dot product, Euclidean length, normalization, and element-wise arithmetic

package vecmath

import "math"

// Vector is a point in resource space, e.g. (memory GiB, CPU cores).
type Vector []float64

// Dot returns the dot product of two vectors of equal length.
func Dot(a, b Vector) float64 {
	mustMatch(a, b)
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Length returns the Euclidean length of v.
func Length(v Vector) float64 {
	return math.Sqrt(Dot(v, v))
}

// Normalize returns v scaled to unit length.
// The zero vector normalizes to the zero vector.
func Normalize(v Vector) Vector {
	out := make(Vector, len(v))
	l := Length(v)
	if l == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / l
	}
	return out
}

// Sub returns a - b.
func Sub(a, b Vector) Vector {
	mustMatch(a, b)
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// Add returns a + b.
func Add(a, b Vector) Vector {
	mustMatch(a, b)
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// Product multiplies all components together. An empty vector has product 0.
func Product(v Vector) float64 {
	if len(v) == 0 {
		return 0
	}
	p := 1.0
	for _, x := range v {
		p *= x
	}
	return p
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vector) float64 {
	return Length(Sub(a, b))
}

func mustMatch(a, b Vector) {
	if len(a) != len(b) {
		panic("vecmath: vector length mismatch")
	}
}
