package snca

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/GrahamLaidler/SNCA/cells"
	"github.com/GrahamLaidler/SNCA/internal/parallel"
	"github.com/GrahamLaidler/SNCA/metric"
)

// buildCells compresses the dataset into its distinct (point, label) cells.
func buildCells[L comparable](points []Point, labels []L) []cells.Cell[L] {
	raw := make([][]float64, len(points))
	for i, pt := range points {
		raw[i] = pt
	}
	return cells.Build(raw, labels)
}

// evalCells runs the multiset-compressed evaluation. Each cell stands for
// Count identical points, so one pass over cell pairs accounts for every
// underlying point pair: neighbor masses carry the neighbor cell's
// multiplicity, and a reference cell contributes Count copies of its
// per-point value and gradient.
//
// A reference's own cell joins its neighborhood with multiplicity Count-1
// (the reference point itself is never its own neighbor) at squared distance
// zero. Those self-cell pairs have a zero coordinate difference, so they add
// mass but never gradient.
func evalCells[L comparable](a *mat.Dense, cs []cells.Cell[L], scaling Scaling, workers int, wantGrad bool) (float64, []float64, error) {
	m := len(cs)
	_, d := a.Dims()

	pts := make([]Point, m)
	for i := range cs {
		pts[i] = Point(cs[i].Point)
	}
	proj := projectAll(a, pts)

	parts := make([]partial, workers)
	parallel.ParallelChunks(m, workers, func(worker, start, end int) {
		part := &parts[worker]
		if wantGrad {
			part.grad = make([]float64, d*d)
		}
		dists := make([]float64, m)
		weights := make([]float64, m)
		diff := make([]float64, d)

		for k := start; k < end; k++ {
			ref := &cs[k]

			dmin := math.Inf(1)
			for l := 0; l < m; l++ {
				if l == k {
					dists[l] = 0
					continue
				}
				dists[l] = metric.SqDist(proj[k], proj[l])
				if dists[l] < dmin {
					dmin = dists[l]
				}
			}
			// With siblings present the nearest neighbor distance is zero.
			if ref.Count > 1 && dmin > 0 {
				dmin = 0
			}

			var same, total float64
			for l := 0; l < m; l++ {
				mult := cs[l].Count
				if l == k {
					mult--
				}
				if mult == 0 {
					weights[l] = 0
					continue
				}
				w := math.Exp(dmin-dists[l]) * float64(mult)
				weights[l] = w
				total += w
				if cs[l].Label == ref.Label {
					same += w
				}
			}
			if scaling == Log && same == 0 {
				part.err = fmt.Errorf("%w: reference cell %d", ErrNoSameClass, k)
				return
			}
			part.value += float64(ref.Count) * scaling.value(same, total)

			if !wantGrad {
				continue
			}
			c1, c2 := scaling.gradCoeffs(same, total)
			for l := 0; l < m; l++ {
				if l == k {
					continue
				}
				coeff := weights[l] * c1
				if cs[l].Label == ref.Label {
					coeff = weights[l] * (c1 + c2)
				}
				coeff *= float64(ref.Count)
				if coeff == 0 {
					continue
				}
				floats.SubTo(diff, ref.Point, cs[l].Point)
				accumOuter(part.grad, diff, coeff)
			}
		}
	})

	return reduce(parts, d, wantGrad)
}
