// Package cells implements the repeat-compression layer for NCA: it groups a
// dataset's (point, label) pairs by exact value equality into unique cells
// with multiplicities. Datasets with many repeated rows then cost quadratic
// work in the number of distinct cells rather than the number of points.
package cells

import (
	"encoding/binary"
	"math"
)

// Cell is a unique (point, label) pair together with the number of times it
// occurs in the dataset. The cells built from a dataset partition it.
type Cell[L comparable] struct {
	Point []float64
	Label L
	Count int
}

// key identifies a cell by the bit patterns of its coordinates plus its
// label. Bit equality is exact value identity: 0.0 and -0.0 form distinct
// cells, and NaNs group only when their payloads coincide.
type key[L comparable] struct {
	point string
	label L
}

// Build groups points by exact (point, label) equality and returns one cell
// per distinct pair, in order of first appearance. Both nested passes of a
// compressed evaluation iterate the returned slice, so distance indices and
// multiplicities stay aligned by construction.
//
// Cells reference the coordinate slices of the first occurrence; they are
// not copied.
func Build[L comparable](points [][]float64, labels []L) []Cell[L] {
	index := make(map[key[L]]int, len(points))
	built := make([]Cell[L], 0, len(points))

	for i, pt := range points {
		k := key[L]{point: pointKey(pt), label: labels[i]}
		if at, ok := index[k]; ok {
			built[at].Count++
			continue
		}
		index[k] = len(built)
		built = append(built, Cell[L]{Point: pt, Label: labels[i], Count: 1})
	}

	return built
}

// pointKey encodes the coordinates of p as their raw float64 bit patterns.
func pointKey(p []float64) string {
	b := make([]byte, 8*len(p))
	for i, v := range p {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return string(b)
}
