package snca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPointsFromColumns(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}

	points, err := PointsFromColumns(data, 3)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, Point{1, 2, 3}, points[0])
	assert.Equal(t, Point{4, 5, 6}, points[1])

	// The points alias the buffer.
	data[4] = 50
	assert.Equal(t, Point{4, 50, 6}, points[1])
}

func TestPointsFromColumnsEmpty(t *testing.T) {
	points, err := PointsFromColumns(nil, 3)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestPointsFromColumnsErrors(t *testing.T) {
	t.Run("zero dimension", func(t *testing.T) {
		_, err := PointsFromColumns([]float64{1, 2}, 0)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
	t.Run("ragged buffer", func(t *testing.T) {
		_, err := PointsFromColumns([]float64{1, 2, 3, 4, 5}, 3)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}

func TestPointsFromDense(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	points := PointsFromDense(m)
	require.Len(t, points, 3)
	assert.Equal(t, Point{1, 2}, points[0])
	assert.Equal(t, Point{3, 4}, points[1])
	assert.Equal(t, Point{5, 6}, points[2])

	// The points are copies, detached from the matrix.
	m.Set(1, 1, 40)
	assert.Equal(t, Point{3, 4}, points[1])
}
