package store

import (
	"encoding/json"
	"io"
	"time"

	"lvbench/internal/bench"
)

// ExportData flattens a benchmark result into a single JSON document
// for use outside the store layout.
type ExportData struct {
	Timestamp time.Time       `json:"timestamp"`
	Truth     []float64       `json:"truth"`
	Sigma     float64         `json:"sigma"`
	Times     []float64       `json:"times"`
	Prey      []float64       `json:"prey"`
	Predator  []float64       `json:"predator"`
	Backends  []BackendResult `json:"backends"`
}

func ExportJSON(w io.Writer, res *bench.Result) error {
	data := ExportData{
		Timestamp: res.Started,
		Truth:     res.Experiment.Truth,
		Sigma:     res.Experiment.Sigma,
		Times:     res.Data.Times,
		Prey:      res.Data.Prey,
		Predator:  res.Data.Predator,
		Backends:  backendResults(res),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
