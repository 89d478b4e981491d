// Package store persists benchmark results under a base directory,
// one subdirectory per run:
//
//	<base>/bench_1700000000/
//	    metadata.json        experiment settings and per-backend summaries
//	    dataset.csv          the observations every backend saw
//	    chain_<backend>.csv  one row per kept draw
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"lvbench/internal/bench"
	"lvbench/internal/chain"
	"lvbench/internal/observe"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type ParamStats struct {
	Name string  `json:"name"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Q05  float64 `json:"q05"`
	Q50  float64 `json:"q50"`
	Q95  float64 `json:"q95"`
	ESS  float64 `json:"ess"`
	Rhat float64 `json:"rhat,omitempty"`
}

type BackendResult struct {
	Backend  string       `json:"backend"`
	Seconds  float64      `json:"seconds"`
	Samples  int          `json:"samples"`
	MoveRate float64      `json:"move_rate"`
	Error    string       `json:"error,omitempty"`
	Params   []ParamStats `json:"params,omitempty"`
}

type RunMetadata struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Seed      uint64          `json:"seed"`
	Truth     []float64       `json:"truth"`
	Sigma     float64         `json:"sigma"`
	RelTol    float64         `json:"rel_tol"`
	Backends  []BackendResult `json:"backends"`
}

// Save writes one benchmark result and returns its run ID.
func (s *Store) Save(res *bench.Result) (string, error) {
	runID := fmt.Sprintf("bench_%d", time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Timestamp: res.Started,
		Seed:      res.Experiment.Seed,
		Truth:     res.Experiment.Truth,
		Sigma:     res.Experiment.Sigma,
		RelTol:    res.Experiment.Solver.RelTol,
		Backends:  backendResults(res),
	}
	for _, run := range res.Runs {
		if run.Chain == nil {
			continue
		}
		if err := saveChain(runDir, run.Backend, run.Chain); err != nil {
			return "", err
		}
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	dataFile, err := os.Create(filepath.Join(runDir, "dataset.csv"))
	if err != nil {
		return "", err
	}
	defer dataFile.Close()
	if err := res.Data.WriteCSV(dataFile); err != nil {
		return "", err
	}

	return runID, nil
}

// backendResults summarizes every run for metadata and export.
func backendResults(res *bench.Result) []BackendResult {
	out := make([]BackendResult, 0, len(res.Runs))
	for _, run := range res.Runs {
		br := BackendResult{
			Backend: run.Backend,
			Seconds: run.Elapsed.Seconds(),
		}
		if run.Err != nil {
			br.Error = run.Err.Error()
		}
		if run.Chain != nil {
			br.Samples = run.Chain.Len()
			br.MoveRate = run.Summary.MoveRate
			for _, p := range run.Summary.Params {
				br.Params = append(br.Params, ParamStats{
					Name: p.Name,
					Mean: p.Mean,
					Std:  p.Std,
					Q05:  p.Q05,
					Q50:  p.Q50,
					Q95:  p.Q95,
					ESS:  p.ESS,
					Rhat: finite(p.Rhat),
				})
			}
		}
		out = append(out, br)
	}
	return out
}

// finite maps NaN and infinities to zero so the metadata stays valid
// JSON. A zero Rhat means the diagnostic was undefined for the chain.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func saveChain(runDir, backend string, ch *chain.Chain) error {
	f, err := os.Create(filepath.Join(runDir, "chain_"+backend+".csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ch.Names); err != nil {
		return err
	}
	row := make([]string, ch.Dim())
	for _, draw := range ch.Draws {
		for j, v := range draw {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns metadata for every readable run. Directories without
// parseable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadChain reads back one backend's draws.
func (s *Store) LoadChain(runID, backend string) (*chain.Chain, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "chain_"+backend+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("store: chain file for %q is empty", backend)
	}

	ch := chain.New(records[0], len(records)-1)
	draw := make([]float64, len(records[0]))
	for i, rec := range records[1:] {
		if len(rec) != len(draw) {
			return nil, fmt.Errorf("store: chain row %d has %d fields, want %d", i+1, len(rec), len(draw))
		}
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("store: chain row %d: %w", i+1, err)
			}
			draw[j] = v
		}
		ch.Append(draw)
	}
	return ch, nil
}

// LoadDataset reads back the observations a run was benchmarked on,
// with the noise scale restored from metadata.
func (s *Store) LoadDataset(runID string) (*observe.Dataset, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, runID, "dataset.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := observe.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	d.Sigma = meta.Sigma
	return d, nil
}
