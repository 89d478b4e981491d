// Package observe generates and serializes the synthetic observations
// consumed by the inference backends.
package observe

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"lvbench/internal/ode"
)

// Dataset holds noisy observations of both species at fixed times.
// Values are never mutated after Generate returns; backends share one
// Dataset read-only.
type Dataset struct {
	Times    []float64
	Prey     []float64
	Predator []float64
	Sigma    float64
}

func (d *Dataset) Len() int { return len(d.Times) }

// UniformGrid returns n evenly spaced times from start to stop inclusive.
func UniformGrid(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	ts := make([]float64, n)
	if n == 1 {
		ts[0] = start
		return ts
	}
	step := (stop - start) / float64(n-1)
	for i := range ts {
		ts[i] = start + float64(i)*step
	}
	ts[n-1] = stop
	return ts
}

// Generate samples the trajectory at each grid time and perturbs both
// coordinates with independent Normal(0, sigma) draws from src.
// sigma = 0 reproduces the trajectory exactly; a fixed src seed makes
// the dataset reproducible.
func Generate(sol *ode.Solution, grid []float64, sigma float64, src rand.Source) (*Dataset, error) {
	if sigma < 0 {
		return nil, fmt.Errorf("observe: sigma must be non-negative, got %g", sigma)
	}
	if sol.Dim() != 2 {
		return nil, fmt.Errorf("observe: want a 2-dimensional trajectory, got %d", sol.Dim())
	}

	d := &Dataset{
		Times:    append([]float64(nil), grid...),
		Prey:     make([]float64, len(grid)),
		Predator: make([]float64, len(grid)),
		Sigma:    sigma,
	}
	noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
	x := make(ode.State, 2)
	for i, t := range grid {
		if err := sol.AtInto(x, t); err != nil {
			return nil, err
		}
		d.Prey[i] = x[0]
		d.Predator[i] = x[1]
		if sigma > 0 {
			d.Prey[i] += noise.Rand()
			d.Predator[i] += noise.Rand()
		}
	}
	return d, nil
}

// WriteCSV emits the dataset as t,prey,predator rows with a header.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t", "prey", "predator"}); err != nil {
		return err
	}
	for i := range d.Times {
		rec := []string{
			strconv.FormatFloat(d.Times[i], 'g', -1, 64),
			strconv.FormatFloat(d.Prey[i], 'g', -1, 64),
			strconv.FormatFloat(d.Predator[i], 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a dataset written by WriteCSV. Sigma is not part of
// the CSV and stays zero; callers restore it from run metadata.
func ReadCSV(r io.Reader) (*Dataset, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	d := &Dataset{}
	for i, rec := range records {
		if i == 0 && rec[0] == "t" {
			continue
		}
		if len(rec) != 3 {
			return nil, fmt.Errorf("observe: row %d has %d columns, want 3", i, len(rec))
		}
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("observe: row %d: %w", i, err)
		}
		prey, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("observe: row %d: %w", i, err)
		}
		pred, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("observe: row %d: %w", i, err)
		}
		d.Times = append(d.Times, t)
		d.Prey = append(d.Prey, prey)
		d.Predator = append(d.Predator, pred)
	}
	if d.Len() == 0 {
		return nil, fmt.Errorf("observe: empty dataset")
	}
	return d, nil
}
