// Package snca implements Neighbourhood Components Analysis (NCA): the
// objective of a soft stochastic nearest-neighbor classifier under a learned
// linear projection, together with its exact gradient with respect to the
// projection matrix.
//
// Given points in D dimensions, their class labels, and a P×D projection A,
// each reference point classifies itself from its neighbors with softmax
// weights exp(-d) over squared distances d in the projected space. The
// objective is the negated sum over references of either the same-class
// mass ratio (Standard scaling) or its logarithm (Log scaling); smaller is
// better, so the value plugs directly into a minimizer. The gradient is the
// hand-derived closed form, not a numerical approximation.
//
// Two interchangeable evaluation variants are provided: a direct O(n²) pass
// over the points, and a multiset-compressed pass that groups identical
// (point, label) rows into cells with multiplicities and pays quadratic cost
// only in the number of distinct cells.
//
// Basic usage with an external optimizer:
//
//	model, err := snca.New(points, labels, snca.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	p, d := model.Dims()
//	x0 := make([]float64, p*d) // flattened initial projection
//	result, err := optimize.Minimize(model.Problem(), x0, nil, &optimize.LBFGS{})
package snca

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/GrahamLaidler/SNCA/internal/parallel"
)

// Sentinel errors reported by the evaluators. Returned errors wrap these
// with positional detail; match with errors.Is.
var (
	// ErrShapeMismatch reports inputs whose dimensions disagree: points and
	// labels of different lengths, ragged or empty points, a projection
	// whose column count differs from the point dimension, or a gradient
	// buffer of the wrong shape.
	ErrShapeMismatch = errors.New("snca: input shapes disagree")

	// ErrTooFewPoints reports a dataset with fewer than two points. A lone
	// point has no neighbors, so its softmax mass is undefined.
	ErrTooFewPoints = errors.New("snca: dataset needs at least two points")

	// ErrNoSameClass reports, under Log scaling, a reference with zero
	// same-class neighbor mass: its log contribution would be -Inf. The
	// evaluators refuse to produce non-finite values silently.
	ErrNoSameClass = errors.New("snca: log scaling needs same-class neighbor mass for every reference")

	// ErrUnknownScaling reports a Scaling value outside the enumeration.
	ErrUnknownScaling = errors.New("snca: unknown objective scaling")
)

// Scaling selects the transform applied to each reference's (same-class
// mass, total mass) pair before summation.
type Scaling int

const (
	// Standard contributes the ratio same/total, the probability that the
	// reference is classified correctly by its soft neighbors.
	Standard Scaling = iota

	// Log contributes log(same) - log(total), emphasizing references that
	// are nearly misclassified.
	Log
)

// String returns the name accepted by ParseScaling.
func (s Scaling) String() string {
	switch s {
	case Standard:
		return "standard"
	case Log:
		return "log"
	}
	return fmt.Sprintf("Scaling(%d)", int(s))
}

// ParseScaling maps a scaling name, as used on the command line, to its
// Scaling value.
func ParseScaling(name string) (Scaling, error) {
	switch name {
	case "standard":
		return Standard, nil
	case "log":
		return Log, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownScaling, name)
}

// valid reports whether s is a member of the closed enumeration.
func (s Scaling) valid() error {
	switch s {
	case Standard, Log:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownScaling, int(s))
}

// value returns the per-reference objective contribution for the given
// neighbor masses.
func (s Scaling) value(same, total float64) float64 {
	if s == Log {
		return math.Log(same) - math.Log(total)
	}
	return same / total
}

// gradCoeffs returns multipliers (c1, c2) such that the reference's D×D
// gradient contribution is c1·S1 + c2·S2, where S1 and S2 are the
// weighted outer-product sums over all neighbors and over same-class
// neighbors respectively.
func (s Scaling) gradCoeffs(same, total float64) (c1, c2 float64) {
	if s == Log {
		return 1 / total, -1 / same
	}
	return same / (total * total), -1 / total
}

// Config configures an NCA model.
type Config struct {
	// Scaling is the objective scaling.
	// Default: Standard
	Scaling Scaling

	// OutDims is the number of projection rows P. The model needs it to
	// reshape the flat parameter vector an optimizer supplies.
	// Default: 2
	OutDims int

	// Repeats selects the multiset-compressed evaluation variant. Worth it
	// when the dataset contains exact duplicate (point, label) rows.
	// Default: false
	Repeats bool

	// Workers is the number of goroutines evaluating reference points.
	// 0 = auto-detect based on CPU cores.
	// Default: 0
	Workers int
}

// DefaultConfig returns the default NCA configuration.
func DefaultConfig() Config {
	return Config{
		Scaling: Standard,
		OutDims: 2,
		Repeats: false,
		Workers: 0,
	}
}

// Objective evaluates the NCA objective at projection a using the direct
// O(n²) variant. a is read, never retained or mutated.
func Objective[L comparable](a mat.Matrix, points []Point, labels []L, scaling Scaling) (float64, error) {
	return ObjectiveGrad[L](nil, a, points, labels, scaling)
}

// ObjectiveRepeats evaluates the NCA objective using the multiset-compressed
// variant. It agrees with Objective to floating-point tolerance; the cost is
// quadratic in the number of distinct (point, label) cells instead of the
// number of points.
func ObjectiveRepeats[L comparable](a mat.Matrix, points []Point, labels []L, scaling Scaling) (float64, error) {
	return ObjectiveGradRepeats[L](nil, a, points, labels, scaling)
}

// ObjectiveGrad evaluates the objective and, when dst is non-nil, its
// gradient with respect to a in one pass, sharing the distance and
// neighbor-mass sums between the two. dst must be P×D; on success it is
// fully overwritten exactly once, on error it is left untouched. Passing
// nil skips the gradient work and makes ObjectiveGrad equivalent to
// Objective.
func ObjectiveGrad[L comparable](dst *mat.Dense, a mat.Matrix, points []Point, labels []L, scaling Scaling) (float64, error) {
	return eval(dst, a, points, labels, scaling, false, 0)
}

// ObjectiveGradRepeats is the multiset-compressed counterpart of
// ObjectiveGrad.
func ObjectiveGradRepeats[L comparable](dst *mat.Dense, a mat.Matrix, points []Point, labels []L, scaling Scaling) (float64, error) {
	return eval(dst, a, points, labels, scaling, true, 0)
}

// eval validates the inputs, dispatches to the requested engine variant, and
// assembles the P×D gradient when a destination buffer was supplied.
func eval[L comparable](dst *mat.Dense, a mat.Matrix, points []Point, labels []L, scaling Scaling, repeats bool, workers int) (float64, error) {
	if err := scaling.valid(); err != nil {
		return 0, err
	}
	d, err := checkDataset(points, labels)
	if err != nil {
		return 0, err
	}
	p, ac := a.Dims()
	if p < 1 {
		return 0, fmt.Errorf("%w: projection has %d rows", ErrShapeMismatch, p)
	}
	if ac != d {
		return 0, fmt.Errorf("%w: projection has %d columns, points have dimension %d", ErrShapeMismatch, ac, d)
	}
	wantGrad := dst != nil
	if wantGrad {
		if r, c := dst.Dims(); r != p || c != d {
			return 0, fmt.Errorf("%w: gradient buffer is %d×%d, want %d×%d", ErrShapeMismatch, r, c, p, d)
		}
	}
	if workers <= 0 {
		workers = parallel.NumWorkers()
	}

	// The projection changes every optimizer iteration, so it is copied per
	// call and nothing derived from it is cached across calls.
	ad := mat.DenseCopyOf(a)

	var value float64
	var gsum []float64
	if repeats {
		value, gsum, err = evalCells(ad, buildCells(points, labels), scaling, workers, wantGrad)
	} else {
		value, gsum, err = evalRaw(ad, points, labels, scaling, workers, wantGrad)
	}
	if err != nil {
		return 0, err
	}
	if wantGrad {
		assembleGrad(dst, ad, gsum)
	}
	return value, nil
}

// checkDataset verifies the dataset preconditions eagerly and returns the
// point dimension.
func checkDataset[L comparable](points []Point, labels []L) (int, error) {
	if len(points) != len(labels) {
		return 0, fmt.Errorf("%w: %d points against %d labels", ErrShapeMismatch, len(points), len(labels))
	}
	if len(points) < 2 {
		return 0, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(points))
	}
	d := len(points[0])
	if d == 0 {
		return 0, fmt.Errorf("%w: point 0 has no coordinates", ErrShapeMismatch)
	}
	for i, pt := range points {
		if len(pt) != d {
			return 0, fmt.Errorf("%w: point %d has %d coordinates, point 0 has %d", ErrShapeMismatch, i, len(pt), d)
		}
	}
	return d, nil
}
