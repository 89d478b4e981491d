package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"lvbench/internal/backends"
	"lvbench/internal/bench"
	"lvbench/internal/chain"
	"lvbench/internal/config"
	"lvbench/internal/integrators"
	"lvbench/internal/observe"
	"lvbench/internal/ode"
	"lvbench/internal/physics"
	"lvbench/internal/priors"
	"lvbench/internal/report"
	"lvbench/internal/store"
	"lvbench/internal/tui"
)

var (
	dataDir      string
	configFile   string
	preset       string
	samples      int
	burn         int
	seed         uint64
	sigma        float64
	rtol         float64
	timeout      float64
	backendNames []string
	stanBin      string
	chains       int
	targetAccept float64
	noSave       bool
	asJSON       bool
	// simulate parameters
	pa, pb, pc, pd float64
	prey0, pred0   float64
	duration       float64
	points         int
	csvOut         bool
	// priors sampling
	priorDraws int
	// plot selection
	plotBackend string
	plotParam   string
	// live view
	liveScale float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lvbench",
		Short: "benchmark bayesian inference backends on lotka-volterra recovery",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "runs", "run directory")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "run every configured backend on one shared dataset",
		RunE:  runBench,
	}
	addExperimentFlags(benchCmd)
	benchCmd.Flags().BoolVar(&noSave, "no-save", false, "skip writing the run to disk")
	benchCmd.Flags().BoolVar(&asJSON, "json", false, "emit the full result as JSON instead of a table")

	runCmd := &cobra.Command{
		Use:   "run [backend]",
		Short: "run a single backend and print its posterior",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackend,
	}
	addExperimentFlags(runCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "integrate the predator-prey system and plot it",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().Float64Var(&pa, "a", 1.5, "prey birth rate")
	simulateCmd.Flags().Float64Var(&pb, "b", 1.0, "predation rate")
	simulateCmd.Flags().Float64Var(&pc, "c", 3.0, "predator death rate")
	simulateCmd.Flags().Float64Var(&pd, "d", 1.0, "predator growth rate")
	simulateCmd.Flags().Float64Var(&prey0, "prey", 1.0, "initial prey population")
	simulateCmd.Flags().Float64Var(&pred0, "predator", 1.0, "initial predator population")
	simulateCmd.Flags().Float64Var(&duration, "time", 10.0, "integration span")
	simulateCmd.Flags().Float64Var(&rtol, "rtol", 1e-6, "relative tolerance")
	simulateCmd.Flags().IntVar(&points, "points", 200, "output samples")
	simulateCmd.Flags().BoolVar(&csvOut, "csv", false, "emit CSV instead of plots")

	datasetCmd := &cobra.Command{
		Use:   "dataset",
		Short: "generate the noisy benchmark dataset as CSV",
		RunE:  runDataset,
	}
	addExperimentFlags(datasetCmd)

	priorsCmd := &cobra.Command{
		Use:   "priors",
		Short: "show the parameter priors and their sample statistics",
		RunE:  runPriors,
	}
	priorsCmd.Flags().IntVar(&priorDraws, "draws", 10000, "draws per prior")
	priorsCmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored benchmark runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored benchmark run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot stored posterior chains",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotBackend, "backend", "", "backend chain to plot (default: first successful)")
	plotCmd.Flags().StringVar(&plotParam, "param", "", "single parameter to plot")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export stored run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch the random-walk sampler draw in real time",
		RunE:  runLive,
	}
	addExperimentFlags(liveCmd)
	liveCmd.Flags().Float64Var(&liveScale, "scale", 0, "proposal scale (0 = tuned)")

	stanCmd := &cobra.Command{
		Use:   "stan-model",
		Short: "print the Stan program for the cmdstan backend",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(backends.StanProgram)
		},
	}

	rootCmd.AddCommand(benchCmd, runCmd, simulateCmd, datasetCmd, priorsCmd,
		listCmd, showCmd, plotCmd, exportCmd, liveCmd, stanCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addExperimentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&samples, "samples", 10000, "posterior draws per backend")
	cmd.Flags().IntVar(&burn, "burn", 0, "warmup draws (0 = samples/10)")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().Float64Var(&sigma, "sigma", 0.49, "observation noise scale")
	cmd.Flags().Float64Var(&rtol, "rtol", 1e-3, "likelihood solver relative tolerance")
	cmd.Flags().Float64Var(&timeout, "timeout", 0, "per-backend timeout in seconds (0 = none)")
	cmd.Flags().StringSliceVar(&backendNames, "backends", nil, "backends to run")
	cmd.Flags().StringVar(&stanBin, "stan-bin", "", "compiled cmdstan model binary")
	cmd.Flags().IntVar(&chains, "chains", 1, "parallel chains (gonum-mh)")
	cmd.Flags().Float64Var(&targetAccept, "target-accept", 0.65, "target acceptance rate")
}

// loadConfig resolves preset, config file, and flags in that order, so
// explicit flags always win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("samples") {
		cfg.Sampler.Samples = samples
	}
	if cmd.Flags().Changed("burn") {
		cfg.Sampler.Burn = burn
	}
	if cmd.Flags().Changed("seed") {
		cfg.Experiment.Seed = seed
	}
	if cmd.Flags().Changed("sigma") {
		cfg.Experiment.Sigma = sigma
	}
	if cmd.Flags().Changed("rtol") {
		cfg.Solver.RelTol = rtol
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Experiment.TimeoutSeconds = timeout
	}
	if cmd.Flags().Changed("backends") {
		cfg.Backends = backendNames
	}
	if cmd.Flags().Changed("stan-bin") {
		cfg.Sampler.StanBin = stanBin
	}
	if cmd.Flags().Changed("chains") {
		cfg.Sampler.Chains = chains
	}
	if cmd.Flags().Changed("target-accept") {
		cfg.Sampler.TargetAccept = targetAccept
	}
	if cmd.Flags().Changed("data") {
		cfg.Output.Dir = dataDir
	}
	return cfg, nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp := cfg.GetExperiment()

	dr := &bench.Driver{}
	if !asJSON {
		fmt.Printf("benchmarking %d backends, %d draws each\n\n", len(exp.Backends), exp.Sampler.Samples)
		dr.Progress = func(run bench.Run) {
			if run.Failed() {
				fmt.Printf("%-14s failed after %v: %v\n", run.Backend, run.Elapsed.Round(time.Millisecond), run.Err)
				return
			}
			fmt.Printf("%-14s %d draws in %v\n", run.Backend, run.Summary.N, run.Elapsed.Round(time.Millisecond))
		}
	}

	res, err := dr.Run(context.Background(), exp)
	if err != nil {
		return err
	}

	if asJSON {
		return store.ExportJSON(os.Stdout, res)
	}

	fmt.Println()
	if err := report.Comparison(os.Stdout, res); err != nil {
		return err
	}
	if noSave {
		return nil
	}

	st := store.New(cfg.Output.Dir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(res)
	if err != nil {
		return err
	}
	fmt.Printf("\nrun id: %s\n", runID)
	return nil
}

func runBackend(cmd *cobra.Command, args []string) error {
	if _, err := backends.New(args[0]); err != nil {
		return fmt.Errorf("%w (available: %v)", err, backends.List())
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Backends = args[:1]
	exp := cfg.GetExperiment()

	dr := &bench.Driver{}
	res, err := dr.Run(context.Background(), exp)
	if err != nil {
		return err
	}
	return report.Posterior(os.Stdout, res.Runs[0])
}

func runSimulate(cmd *cobra.Command, args []string) error {
	model := physics.NewLotkaVolterra()
	for name, v := range map[string]float64{"a": pa, "b": pb, "c": pc, "d": pd} {
		if err := model.SetParam(name, v); err != nil {
			return err
		}
	}

	solver := ode.DefaultConfig()
	solver.RelTol = rtol
	sim := ode.NewSimulator(model, integrators.NewDormandPrince(), solver)

	sol, err := sim.Solve(context.Background(), ode.State{prey0, pred0}, 0, duration, model.Params())
	if err != nil {
		return err
	}

	grid := observe.UniformGrid(0, duration, points)
	prey := make([]float64, len(grid))
	pred := make([]float64, len(grid))
	for i, t := range grid {
		x, err := sol.At(t)
		if err != nil {
			return err
		}
		prey[i], pred[i] = x[0], x[1]
	}

	if csvOut {
		w := csv.NewWriter(os.Stdout)
		defer w.Flush()
		if err := w.Write([]string{"time", "prey", "predator"}); err != nil {
			return err
		}
		for i := range grid {
			row := []string{
				strconv.FormatFloat(grid[i], 'f', 6, 64),
				strconv.FormatFloat(prey[i], 'f', 6, 64),
				strconv.FormatFloat(pred[i], 'f', 6, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	}

	fmt.Printf("a=%.2f b=%.2f c=%.2f d=%.2f over [0, %.1f], rtol=%g\n\n", pa, pb, pc, pd, duration, rtol)
	for _, series := range []struct {
		name string
		data []float64
	}{{"prey population", prey}, {"predator population", pred}} {
		graph := asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.name),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	stats := sol.Stats()
	fmt.Printf("steps: %d accepted, %d rejected, %d derivative evaluations\n",
		stats.Steps, stats.Rejected, stats.Evals)
	return nil
}

func runDataset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := bench.MakeDataset(cfg.GetExperiment())
	if err != nil {
		return err
	}
	return data.WriteCSV(os.Stdout)
}

func runPriors(cmd *cobra.Command, args []string) error {
	set := priors.Default(rand.NewSource(seed))

	sums := make([]float64, set.Len())
	sqs := make([]float64, set.Len())
	draw := make([]float64, set.Len())
	for n := 0; n < priorDraws; n++ {
		set.Sample(draw)
		for i, v := range draw {
			sums[i] += v
			sqs[i] += v * v
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAM\tMEAN\tLOWER\tUPPER\tSAMPLE MEAN\tSAMPLE STD")
	for i, name := range set.Names() {
		pr := set.At(i)
		lo, hi := pr.Bounds()
		mean := sums[i] / float64(priorDraws)
		std := math.Sqrt(sqs[i]/float64(priorDraws) - mean*mean)
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n", name, pr.Mean(), lo, hi, mean, std)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSEED\tSIGMA\tBACKENDS")
	for _, run := range runs {
		ok, failed := 0, 0
		for _, b := range run.Backends {
			if b.Error != "" {
				failed++
			} else {
				ok++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%d ok, %d failed\n",
			run.ID, run.Timestamp.Format("2006-01-02 15:04:05"), run.Seed, run.Sigma, ok, failed)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("time: %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("seed: %d, sigma: %.2f, rtol: %g\n", meta.Seed, meta.Sigma, meta.RelTol)
	fmt.Printf("truth: a=%.2f b=%.2f c=%.2f d=%.2f\n\n",
		meta.Truth[0], meta.Truth[1], meta.Truth[2], meta.Truth[3])

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tDRAWS\tTIME\tMOVES\tESS/S\ta\tb\tc\td\tsigma\tSTATUS")
	for _, b := range meta.Backends {
		if b.Error != "" {
			fmt.Fprintf(w, "%s\t\t%.2fs\t\t\t\t\t\t\t\tfailed: %s\n", b.Backend, b.Seconds, b.Error)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%.2fs\t%.2f\t%s\t%s\t%s\t%s\t%s\t%s\tok\n",
			b.Backend, b.Samples, b.Seconds, b.MoveRate, storedEssRate(b),
			paramCell(b, "a"), paramCell(b, "b"), paramCell(b, "c"),
			paramCell(b, "d"), paramCell(b, "sigma"))
	}
	return w.Flush()
}

func paramCell(b store.BackendResult, name string) string {
	for _, p := range b.Params {
		if p.Name == name {
			return fmt.Sprintf("%.3f±%.3f", p.Mean, p.Std)
		}
	}
	return ""
}

func storedEssRate(b store.BackendResult) string {
	if b.Seconds <= 0 || len(b.Params) == 0 {
		return ""
	}
	min := b.Params[0].ESS
	for _, p := range b.Params[1:] {
		if p.ESS < min {
			min = p.ESS
		}
	}
	return fmt.Sprintf("%.1f", min/b.Seconds)
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	backend := plotBackend
	if backend == "" {
		for _, b := range meta.Backends {
			if b.Error == "" {
				backend = b.Backend
				break
			}
		}
		if backend == "" {
			return fmt.Errorf("run %s has no successful backend", meta.ID)
		}
	}

	ch, err := st.LoadChain(args[0], backend)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s, backend: %s, draws: %d\n\n", meta.ID, backend, ch.Len())
	params := ch.Names
	if plotParam != "" {
		params = []string{plotParam}
	}
	for _, p := range params {
		if err := report.Histogram(os.Stdout, ch, p, 80, 10); err != nil {
			return err
		}
		fmt.Println()
		if err := report.Trace(os.Stdout, ch, p, 80, 10); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("scale") {
		cfg.Sampler.ProposalScale = liveScale
	}
	exp := cfg.GetExperiment()

	data, err := bench.MakeDataset(exp)
	if err != nil {
		return err
	}
	prob := backends.Problem{
		U0:     exp.U0,
		T0:     exp.T0,
		Data:   data,
		Priors: priors.Default(rand.NewSource(exp.Seed)),
		Solver: exp.Solver,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := make(chan []float64)
	errc := make(chan error, 1)
	go func() { errc <- backends.MH{}.Stream(ctx, prob, exp.Sampler, sink) }()

	m := tui.NewModel("gonum-mh", sink, cancel, backends.ParamNames(), exp.Sampler.Samples)
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if fm, ok := final.(tui.Model); ok && fm.Chain().Len() > 0 {
		fmt.Println()
		return report.Posterior(os.Stdout, bench.Run{
			Backend: "gonum-mh",
			Chain:   fm.Chain(),
			Summary: chain.Summarize(fm.Chain()),
		})
	}
	return nil
}
