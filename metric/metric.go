// Package metric provides the Mahalanobis distance machinery used by the
// NCA objective. A P×D projection matrix A induces the squared distance
// D(u, v) = (u-v)ᵀ M (u-v) with M = AᵀA, which equals the squared Euclidean
// distance ‖Au - Av‖² in the projected space. Evaluating many distances from
// a fixed reference is cheapest in the projected form: project every point
// once, then take squared Euclidean distances between the projections.
package metric

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Gram returns the metric matrix M = AᵀA induced by the projection a.
// The result is symmetric positive semi-definite.
func Gram(a mat.Matrix) *mat.SymDense {
	_, d := a.Dims()
	g := mat.NewSymDense(d, nil)
	g.SymOuterK(1, a.T())
	return g
}

// Project computes dst = A·x, the image of x under the projection a.
// dst must have length equal to the row count of a, and x to its column
// count.
func Project(dst []float64, a *mat.Dense, x []float64) {
	for r := range dst {
		dst[r] = floats.Dot(a.RawRowView(r), x)
	}
}

// SqDist returns the squared Euclidean distance between two projected
// vectors.
// D(u, v) = sum((u_i - v_i)^2)
func SqDist(u, v []float64) float64 {
	var sum float64
	for i := range u {
		d := u[i] - v[i]
		sum += d * d
	}
	return sum
}

// MahalanobisSq returns the squared Mahalanobis distance (u-v)ᵀ m (u-v).
// For m = Gram(a) this agrees with SqDist applied to the projections of u
// and v. The accumulated value is clamped at zero so that rounding in the
// bilinear form cannot produce a negative distance.
func MahalanobisSq(u, v []float64, m *mat.SymDense) float64 {
	d := len(u)
	diff := make([]float64, d)
	floats.SubTo(diff, u, v)

	var sum float64
	for i := 0; i < d; i++ {
		var inner float64
		for j := 0; j < d; j++ {
			inner += m.At(i, j) * diff[j]
		}
		sum += diff[i] * inner
	}
	if sum < 0 {
		sum = 0
	}
	return sum
}
