package snca

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/GrahamLaidler/SNCA/cells"
	"github.com/GrahamLaidler/SNCA/internal/parallel"
)

// NCA is a fitted-dataset handle for optimizing the projection matrix. It
// validates the dataset once, fixes the projection shape, and exposes the
// objective in the flat-parameter form optimizers consume: the P×D matrix A
// is passed as a row-major slice of length P·D.
//
// The model retains the point and label slices it was built with; callers
// must not mutate them while the model is in use. Methods are safe for
// concurrent use as the model itself is read-only after New.
type NCA[L comparable] struct {
	cfg    Config
	points []Point
	labels []L
	cells  []cells.Cell[L]
	d      int
}

// New builds a model for the dataset. With cfg.Repeats set the distinct
// (point, label) cells are compressed once here and reused by every
// subsequent evaluation.
func New[L comparable](points []Point, labels []L, cfg Config) (*NCA[L], error) {
	if err := cfg.Scaling.valid(); err != nil {
		return nil, err
	}
	if cfg.OutDims < 1 {
		return nil, fmt.Errorf("%w: OutDims %d", ErrShapeMismatch, cfg.OutDims)
	}
	d, err := checkDataset(points, labels)
	if err != nil {
		return nil, err
	}
	m := &NCA[L]{
		cfg:    cfg,
		points: points,
		labels: labels,
		d:      d,
	}
	if cfg.Repeats {
		m.cells = buildCells(points, labels)
	}
	return m, nil
}

// Dims returns the projection shape (P, D): cfg.OutDims rows over the point
// dimension. Parameter vectors passed to Func, Grad and FuncGrad must have
// length P·D.
func (m *NCA[L]) Dims() (p, d int) {
	return m.cfg.OutDims, m.d
}

// matrix views the flat parameter vector as the P×D projection without
// copying.
func (m *NCA[L]) matrix(x []float64) *mat.Dense {
	p, d := m.Dims()
	if len(x) != p*d {
		panic(mat.ErrShape)
	}
	return mat.NewDense(p, d, x)
}

// Func evaluates the objective at the flat projection x.
//
// Under Log scaling a projection is rejected by the objective when some
// reference has no same-class neighbor mass; Func reports that dataset
// condition as +Inf rather than an error, which line searches treat as an
// immediately rejected step.
func (m *NCA[L]) Func(x []float64) float64 {
	value, err := m.eval(nil, x)
	if err != nil {
		return m.errValue(err)
	}
	return value
}

// Grad writes the objective gradient at x into dst, which must have length
// P·D. It matches gonum/optimize's Grad signature.
func (m *NCA[L]) Grad(dst, x []float64) {
	m.FuncGrad(dst, x)
}

// FuncGrad evaluates the objective and its gradient together, sharing the
// neighbor-mass sums between the two. dst must have length P·D and is fully
// overwritten. When the value is +Inf under Log scaling the gradient is
// zeroed: there is no finite descent direction to report.
func (m *NCA[L]) FuncGrad(dst, x []float64) float64 {
	p, d := m.Dims()
	if len(dst) != p*d {
		panic(mat.ErrShape)
	}
	value, err := m.eval(mat.NewDense(p, d, dst), x)
	if err != nil {
		for i := range dst {
			dst[i] = 0
		}
		return m.errValue(err)
	}
	return value
}

// Problem wraps the model for gonum.org/v1/gonum/optimize.Minimize.
func (m *NCA[L]) Problem() optimize.Problem {
	return optimize.Problem{
		Func: m.Func,
		Grad: m.Grad,
	}
}

// eval dispatches to the engine selected by the configuration. The dataset
// was validated by New, so the engines can only fail with ErrNoSameClass.
func (m *NCA[L]) eval(dst *mat.Dense, x []float64) (float64, error) {
	a := m.matrix(x)
	workers := m.cfg.Workers
	if workers <= 0 {
		workers = parallel.NumWorkers()
	}
	var (
		value float64
		gsum  []float64
		err   error
	)
	wantGrad := dst != nil
	if m.cfg.Repeats {
		value, gsum, err = evalCells(a, m.cells, m.cfg.Scaling, workers, wantGrad)
	} else {
		value, gsum, err = evalRaw(a, m.points, m.labels, m.cfg.Scaling, workers, wantGrad)
	}
	if err != nil {
		return 0, err
	}
	if wantGrad {
		assembleGrad(dst, a, gsum)
	}
	return value, nil
}

// errValue converts an engine error into the optimizer-facing value.
func (m *NCA[L]) errValue(err error) float64 {
	if errors.Is(err, ErrNoSameClass) {
		return math.Inf(1)
	}
	panic(err)
}
