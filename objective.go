package snca

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/GrahamLaidler/SNCA/internal/parallel"
	"github.com/GrahamLaidler/SNCA/metric"
)

// partial holds one worker's accumulated state. Workers write only their own
// partial; the results are reduced after all workers have joined.
type partial struct {
	value float64
	grad  []float64
	err   error
}

// evalRaw runs the direct O(n²) evaluation over the points. It returns the
// negated objective and, when wantGrad is set, the flat D×D sum of weighted
// outer products that assembleGrad turns into the gradient.
//
// For each reference the per-neighbor weights are stabilized by shifting
// every squared distance by the reference's minimum before exponentiating.
// The shift cancels in the mass ratios, so values and gradients are
// unchanged while the exponentials stay in (0, 1].
func evalRaw[L comparable](a *mat.Dense, points []Point, labels []L, scaling Scaling, workers int, wantGrad bool) (float64, []float64, error) {
	n := len(points)
	_, d := a.Dims()
	proj := projectAll(a, points)

	parts := make([]partial, workers)
	parallel.ParallelChunks(n, workers, func(worker, start, end int) {
		part := &parts[worker]
		if wantGrad {
			part.grad = make([]float64, d*d)
		}
		dists := make([]float64, n)
		weights := make([]float64, n)
		diff := make([]float64, d)

		for i := start; i < end; i++ {
			ref := proj[i]

			dmin := math.Inf(1)
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				dists[j] = metric.SqDist(ref, proj[j])
				if dists[j] < dmin {
					dmin = dists[j]
				}
			}

			var same, total float64
			for j := 0; j < n; j++ {
				if j == i {
					weights[j] = 0
					continue
				}
				w := math.Exp(dmin - dists[j])
				weights[j] = w
				total += w
				if labels[j] == labels[i] {
					same += w
				}
			}
			if scaling == Log && same == 0 {
				part.err = fmt.Errorf("%w: reference point %d", ErrNoSameClass, i)
				return
			}
			part.value += scaling.value(same, total)

			if !wantGrad {
				continue
			}
			c1, c2 := scaling.gradCoeffs(same, total)
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				coeff := weights[j] * c1
				if labels[j] == labels[i] {
					coeff = weights[j] * (c1 + c2)
				}
				if coeff == 0 {
					continue
				}
				floats.SubTo(diff, points[i], points[j])
				accumOuter(part.grad, diff, coeff)
			}
		}
	})

	return reduce(parts, d, wantGrad)
}

// projectAll maps every point through the projection. The projected vectors
// share one backing array so the pairwise distance loop walks contiguous
// memory.
func projectAll(a *mat.Dense, points []Point) [][]float64 {
	p, _ := a.Dims()
	backing := make([]float64, len(points)*p)
	proj := make([][]float64, len(points))
	for i, pt := range points {
		row := backing[i*p : (i+1)*p : (i+1)*p]
		metric.Project(row, a, pt)
		proj[i] = row
	}
	return proj
}

// accumOuter adds coeff times the outer product diff·diffᵀ to the flat D×D
// accumulator g.
func accumOuter(g, diff []float64, coeff float64) {
	d := len(diff)
	for r, dr := range diff {
		cr := coeff * dr
		if cr == 0 {
			continue
		}
		row := g[r*d : (r+1)*d]
		for c, dc := range diff {
			row[c] += cr * dc
		}
	}
}

// reduce folds the worker partials into the final negated value and gradient
// accumulator. The first error in worker order wins; chunks are contiguous
// and ascending, so that is the error of the lowest failing reference range.
func reduce(parts []partial, d int, wantGrad bool) (float64, []float64, error) {
	for w := range parts {
		if parts[w].err != nil {
			return 0, nil, parts[w].err
		}
	}
	var value float64
	var gsum []float64
	if wantGrad {
		gsum = make([]float64, d*d)
	}
	for w := range parts {
		value += parts[w].value
		if wantGrad && parts[w].grad != nil {
			floats.Add(gsum, parts[w].grad)
		}
	}
	return -value, gsum, nil
}

// assembleGrad writes the P×D objective gradient -2·A·G into dst, where G is
// the flat D×D accumulator produced by the engines.
func assembleGrad(dst, a *mat.Dense, gsum []float64) {
	_, d := a.Dims()
	g := mat.NewDense(d, d, gsum)
	dst.Mul(a, g)
	dst.Scale(-2, dst)
}
