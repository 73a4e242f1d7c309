// Command snca learns an NCA projection from a labeled CSV file.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	snca "github.com/GrahamLaidler/SNCA"
)

func main() {
	inputFile := flag.String("input", "", "Input CSV file, features then label per row (required)")
	outputFile := flag.String("output", "embedding.csv", "Output CSV file with projected points")
	projFile := flag.String("projection", "", "Optional output CSV file for the learned projection matrix")
	components := flag.Int("components", 2, "Number of output dimensions")
	scalingName := flag.String("scaling", "standard", "Objective scaling: standard or log")
	repeats := flag.Bool("repeats", false, "Compress duplicate rows before evaluating")
	workers := flag.Int("workers", 0, "Evaluation goroutines (0 = all cores)")
	iters := flag.Int("iters", 100, "Maximum number of L-BFGS iterations")
	seed := flag.Int64("seed", 42, "Random seed for the initial projection")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -input flag is required")
		flag.Usage()
		os.Exit(1)
	}

	scaling, err := snca.ParseScaling(*scalingName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	points, labels, err := loadCSV(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		classes := make(map[string]struct{})
		for _, l := range labels {
			classes[l] = struct{}{}
		}
		fmt.Printf("Loaded %d samples with %d features in %d classes\n",
			len(points), len(points[0]), len(classes))
	}

	config := snca.DefaultConfig()
	config.Scaling = scaling
	config.OutDims = *components
	config.Repeats = *repeats
	config.Workers = *workers

	model, err := snca.New(points, labels, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p, d := model.Dims()
	x0 := initProjection(p, d, *seed)
	if *verbose {
		fmt.Printf("Initial objective: %g\n", model.Func(x0))
	}

	settings := &optimize.Settings{MajorIterations: *iters}
	result, err := optimize.Minimize(model.Problem(), x0, settings, &optimize.LBFGS{})
	if err != nil && result == nil {
		fmt.Fprintf(os.Stderr, "Error optimizing: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		// The optimizer stalled but still reports its best point.
		fmt.Fprintf(os.Stderr, "Warning: optimizer stopped early: %v\n", err)
	}

	if *verbose {
		fmt.Printf("Final objective: %g after %d iterations (%s)\n",
			result.F, result.Stats.MajorIterations, result.Status)
	}

	learned := mat.NewDense(p, d, result.X)
	if *projFile != "" {
		if err := saveMatrix(*projFile, learned); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving projection: %v\n", err)
			os.Exit(1)
		}
	}

	if err := saveEmbedding(*outputFile, learned, points, labels); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving output: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Saved embedding to %s\n", *outputFile)
	}
}

// initProjection starts from the truncated identity with a little seeded
// noise so that symmetric datasets do not pin the optimizer to a saddle.
func initProjection(p, d int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, p*d)
	for i := range x {
		x[i] = 0.01 * rng.NormFloat64()
	}
	for i := 0; i < p && i < d; i++ {
		x[i*d+i] += 1
	}
	return x
}

// loadCSV loads labeled data from a CSV file: no header, numeric features,
// label in the last column.
func loadCSV(filename string) ([]snca.Point, []string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}
	if len(records[0]) < 2 {
		return nil, nil, fmt.Errorf("need at least one feature column and a label column")
	}

	points := make([]snca.Point, len(records))
	labels := make([]string, len(records))
	for i, record := range records {
		features := record[:len(record)-1]
		labels[i] = record[len(record)-1]
		points[i] = make(snca.Point, len(features))
		for j, val := range features {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d, col %d: %v", i, j, err)
			}
			points[i][j] = f
		}
	}

	return points, labels, nil
}

// saveEmbedding projects every point through a and writes one row per point:
// the projected coordinates followed by the label.
func saveEmbedding(filename string, a *mat.Dense, points []snca.Point, labels []string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeEmbedding(file, a, points, labels)
}

func writeEmbedding(w io.Writer, a *mat.Dense, points []snca.Point, labels []string) error {
	writer := csv.NewWriter(w)
	p, d := a.Dims()
	var projected mat.VecDense
	for i, pt := range points {
		projected.MulVec(a, mat.NewVecDense(d, pt))
		record := make([]string, p+1)
		for r := 0; r < p; r++ {
			record[r] = strconv.FormatFloat(projected.AtVec(r), 'f', 6, 64)
		}
		record[p] = labels[i]
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// saveMatrix writes a matrix to a CSV file, one row per line.
func saveMatrix(filename string, a *mat.Dense) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeMatrix(file, a)
}

func writeMatrix(w io.Writer, a *mat.Dense) error {
	writer := csv.NewWriter(w)
	rows, cols := a.Dims()
	for r := 0; r < rows; r++ {
		record := make([]string, cols)
		for c := 0; c < cols; c++ {
			record[c] = strconv.FormatFloat(a.At(r, c), 'f', 6, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
