package backends

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"lvbench/internal/chain"
)

// Stan shells out to a compiled CmdStan model. The program in
// stan_model.go must be built once with CmdStan's make; cfg.BinPath
// points at the resulting executable.
type Stan struct{}

func (Stan) Name() string { return "cmdstan" }

func (b Stan) Run(ctx context.Context, prob Problem, cfg Config) (*chain.Chain, error) {
	cfg = cfg.normalized()
	if err := prob.validate(); err != nil {
		return nil, Fail(b.Name(), err)
	}
	if cfg.BinPath == "" {
		return nil, Fail(b.Name(), errors.New("no compiled model configured, see the stan-model command"))
	}

	dir, err := os.MkdirTemp("", "lvbench-stan-")
	if err != nil {
		return nil, Fail(b.Name(), err)
	}
	defer os.RemoveAll(dir)

	dataPath := filepath.Join(dir, "data.json")
	outPath := filepath.Join(dir, "samples.csv")
	if err := writeStanData(dataPath, prob); err != nil {
		return nil, Fail(b.Name(), err)
	}

	args := []string{
		"sample",
		fmt.Sprintf("num_samples=%d", cfg.Samples),
		fmt.Sprintf("num_warmup=%d", cfg.Burn),
		"adapt", fmt.Sprintf("delta=%g", cfg.TargetAccept),
		"random", fmt.Sprintf("seed=%d", cfg.Seed),
		"data", "file=" + dataPath,
		"output", "file=" + outPath,
	}
	cmd := exec.CommandContext(ctx, cfg.BinPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, Fail(b.Name(), fmt.Errorf("%w: %s", err, firstLine(&stderr)))
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, Fail(b.Name(), err)
	}
	defer f.Close()
	ch, err := parseStanCSV(f)
	if err != nil {
		return nil, Fail(b.Name(), err)
	}
	return ch, nil
}

// stanData is the model's data block, one observation row per time
// point. The solver tolerance travels with the data so runs can vary
// it without recompiling.
type stanData struct {
	N    int         `json:"N"`
	T0   float64     `json:"t0"`
	Ts   []float64   `json:"ts"`
	Y0   []float64   `json:"y0"`
	Y    [][]float64 `json:"y"`
	RTol float64     `json:"rtol"`
}

func writeStanData(path string, prob Problem) error {
	d := prob.Data
	y := make([][]float64, d.Len())
	for i := range y {
		y[i] = []float64{d.Prey[i], d.Predator[i]}
	}
	rtol := prob.Solver.RelTol
	if rtol <= 0 {
		rtol = 1e-6
	}
	payload, err := json.Marshal(stanData{
		N:    d.Len(),
		T0:   prob.T0,
		Ts:   d.Times,
		Y0:   []float64{prob.U0[0], prob.U0[1]},
		Y:    y,
		RTol: rtol,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

// parseStanCSV reads CmdStan sample output: comment lines start with
// '#' and the model parameters sit alongside sampler diagnostics
// suffixed with "__".
func parseStanCSV(r io.Reader) (*chain.Chain, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	names := ParamNames()
	idx := make([]int, len(names))
	for i := range idx {
		idx[i] = -1
	}
	for col, field := range header {
		for i, name := range names {
			if field == name {
				idx[i] = col
			}
		}
	}
	for i, name := range names {
		if idx[i] < 0 {
			return nil, fmt.Errorf("output has no column %q", name)
		}
	}

	out := chain.New(names, 0)
	draw := make([]float64, len(names))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading samples: %w", err)
		}
		for i, col := range idx {
			if col >= len(rec) {
				return nil, fmt.Errorf("row has %d fields, need %d", len(rec), col+1)
			}
			v, err := strconv.ParseFloat(rec[col], 64)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", rec[col], err)
			}
			draw[i] = v
		}
		out.Append(draw)
	}
	return out, nil
}

func firstLine(buf *bytes.Buffer) string {
	line := buf.String()
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if line == "" {
		line = "no diagnostic output"
	}
	return line
}
