package snca

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Point is a single data point: a D-dimensional coordinate vector. All
// points passed to one evaluation must share the same dimension.
type Point []float64

// PointsFromColumns reinterprets a flat column-major dim×n buffer as n
// points of dimension dim, one per column. The returned points alias data;
// no coordinates are copied.
func PointsFromColumns(data []float64, dim int) ([]Point, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: column dimension %d", ErrShapeMismatch, dim)
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("%w: %d values do not divide into columns of %d", ErrShapeMismatch, len(data), dim)
	}
	points := make([]Point, len(data)/dim)
	for i := range points {
		points[i] = Point(data[i*dim : (i+1)*dim : (i+1)*dim])
	}
	return points, nil
}

// PointsFromDense copies the rows of an n×d matrix into points, one per
// row. The points share a single freshly allocated backing array and are
// independent of m afterwards.
func PointsFromDense(m mat.Matrix) []Point {
	n, d := m.Dims()
	backing := make([]float64, n*d)
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		row := backing[i*d : (i+1)*d : (i+1)*d]
		for j := 0; j < d; j++ {
			row[j] = m.At(i, j)
		}
		points[i] = Point(row)
	}
	return points
}
