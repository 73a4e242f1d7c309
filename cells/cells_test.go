package cells

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGroupsExactDuplicates(t *testing.T) {
	points := [][]float64{
		{0, 0},
		{0, 0},
		{10, 10},
	}
	labels := []int{0, 0, 1}

	cs := Build(points, labels)

	require.Len(t, cs, 2)
	assert.Equal(t, []float64{0, 0}, cs[0].Point)
	assert.Equal(t, 0, cs[0].Label)
	assert.Equal(t, 2, cs[0].Count)
	assert.Equal(t, []float64{10, 10}, cs[1].Point)
	assert.Equal(t, 1, cs[1].Label)
	assert.Equal(t, 1, cs[1].Count)
}

func TestBuildLabelSplitsEqualCoordinates(t *testing.T) {
	points := [][]float64{
		{1, 2},
		{1, 2},
	}
	labels := []string{"a", "b"}

	cs := Build(points, labels)

	require.Len(t, cs, 2)
	assert.Equal(t, 1, cs[0].Count)
	assert.Equal(t, 1, cs[1].Count)
}

func TestBuildFirstAppearanceOrder(t *testing.T) {
	points := [][]float64{
		{3}, {1}, {3}, {2}, {1}, {3},
	}
	labels := []int{0, 0, 0, 0, 0, 0}

	cs := Build(points, labels)

	require.Len(t, cs, 3)
	assert.Equal(t, []float64{3}, cs[0].Point)
	assert.Equal(t, 3, cs[0].Count)
	assert.Equal(t, []float64{1}, cs[1].Point)
	assert.Equal(t, 2, cs[1].Count)
	assert.Equal(t, []float64{2}, cs[2].Point)
	assert.Equal(t, 1, cs[2].Count)
}

func TestBuildAllDistinct(t *testing.T) {
	points := [][]float64{{1}, {2}, {3}, {4}}
	labels := []int{0, 1, 0, 1}

	cs := Build(points, labels)

	require.Len(t, cs, 4)
	for i, c := range cs {
		assert.Equal(t, points[i], c.Point)
		assert.Equal(t, 1, c.Count)
	}
}

func TestBuildNegativeZeroIsDistinct(t *testing.T) {
	// Cell identity is bit-pattern equality, so -0.0 and 0.0 do not group
	// even though they compare equal as floats.
	points := [][]float64{
		{0},
		{math.Copysign(0, -1)},
	}
	labels := []int{0, 0}

	cs := Build(points, labels)

	assert.Len(t, cs, 2)
}

func TestBuildEmpty(t *testing.T) {
	cs := Build(nil, []int{})
	assert.Empty(t, cs)
}
