package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	snca "github.com/GrahamLaidler/SNCA"
)

// brokenWriter fails every write; csv.Writer buffers, so the failure only
// surfaces when the writer is flushed.
type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("device full")
}

func TestWriteEmbedding(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{1, 0})
	points := []snca.Point{{3, 9}, {-2, 9}}
	labels := []string{"a", "b"}

	var buf bytes.Buffer
	require.NoError(t, writeEmbedding(&buf, a, points, labels))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "3.000000,a", lines[0])
	assert.Equal(t, "-2.000000,b", lines[1])
}

func TestWriteEmbeddingReportsFlushError(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{1, 0})

	err := writeEmbedding(brokenWriter{}, a, []snca.Point{{3, 9}}, []string{"a"})
	assert.Error(t, err)
}

func TestWriteMatrix(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 0, 0.5, -1})

	var buf bytes.Buffer
	require.NoError(t, writeMatrix(&buf, a))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1.000000,0.000000", lines[0])
	assert.Equal(t, "0.500000,-1.000000", lines[1])
}

func TestWriteMatrixReportsFlushError(t *testing.T) {
	err := writeMatrix(brokenWriter{}, mat.NewDense(1, 1, []float64{1}))
	assert.Error(t, err)
}
