// Package report renders benchmark results for the terminal: the
// backend comparison table, per-parameter posterior tables, and
// asciigraph histograms and traces.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"lvbench/internal/bench"
	"lvbench/internal/chain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ccff"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
)

// Comparison writes the per-backend summary table for one benchmark
// result. Failed backends appear with their error instead of being
// dropped.
func Comparison(w io.Writer, res *bench.Result) error {
	exp := res.Experiment
	fmt.Fprintln(w, titleStyle.Render("lotka-volterra backend benchmark"))
	info := fmt.Sprintf("seed %d, sigma %.2f, %d observations, started %s",
		exp.Seed, exp.Sigma, len(exp.Grid), res.Started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "%s\n\n", subtleStyle.Render(info))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BACKEND\tDRAWS\tTIME\tMOVES\tESS/S\ta\tb\tc\td\tsigma\tSTATUS")
	fmt.Fprintf(tw, "truth\t\t\t\t\t%.3f\t%.3f\t%.3f\t%.3f\t\t\n",
		exp.Truth[0], exp.Truth[1], exp.Truth[2], exp.Truth[3])

	for _, run := range res.Runs {
		if run.Failed() {
			fmt.Fprintf(tw, "%s\t\t%v\t\t\t\t\t\t\t\tfailed: %s\n",
				run.Backend, run.Elapsed.Round(time.Millisecond), oneLine(run.Err.Error()))
			continue
		}
		s := run.Summary
		fmt.Fprintf(tw, "%s\t%d\t%v\t%.2f\t%s\t%s\t%s\t%s\t%s\t%s\tok\n",
			run.Backend, s.N, run.Elapsed.Round(time.Millisecond), s.MoveRate, essRate(run),
			meanStd(s.Param("a")), meanStd(s.Param("b")), meanStd(s.Param("c")),
			meanStd(s.Param("d")), meanStd(s.Param("sigma")))
	}
	return tw.Flush()
}

// Posterior writes one backend's parameter table with quantiles.
func Posterior(w io.Writer, run bench.Run) error {
	if run.Failed() {
		return fmt.Errorf("report: %s failed: %w", run.Backend, run.Err)
	}
	s := run.Summary
	fmt.Fprintln(w, titleStyle.Render(run.Backend))
	info := fmt.Sprintf("%d draws in %v, move rate %.2f",
		s.N, run.Elapsed.Round(time.Millisecond), s.MoveRate)
	fmt.Fprintf(w, "%s\n\n", subtleStyle.Render(info))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAM\tMEAN\tSTD\t5%\t50%\t95%\tESS\tRHAT")
	for _, p := range s.Params {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.0f\t%.2f\n",
			p.Name, p.Mean, p.Std, p.Q05, p.Q50, p.Q95, p.ESS, p.Rhat)
	}
	return tw.Flush()
}

// Histogram renders one parameter's marginal posterior as a binned
// profile.
func Histogram(w io.Writer, ch *chain.Chain, param string, width, height int) error {
	xs, err := column(ch, param)
	if err != nil {
		return err
	}
	counts := binCounts(xs, 40)
	graph := asciigraph.Plot(counts,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("%s posterior (n=%d)", param, len(xs))),
	)
	fmt.Fprintln(w, graph)
	return nil
}

// Trace renders the draw sequence for one parameter, downsampled to
// the plot width.
func Trace(w io.Writer, ch *chain.Chain, param string, width, height int) error {
	xs, err := column(ch, param)
	if err != nil {
		return err
	}
	step := len(xs) / width
	if step < 1 {
		step = 1
	}
	data := make([]float64, 0, width)
	for i := 0; i < len(xs); i += step {
		data = append(data, xs[i])
	}
	graph := asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("%s trace (n=%d)", param, len(xs))),
	)
	fmt.Fprintln(w, graph)
	return nil
}

func column(ch *chain.Chain, param string) ([]float64, error) {
	if ch == nil || ch.Len() == 0 {
		return nil, fmt.Errorf("report: empty chain")
	}
	for j, name := range ch.Names {
		if name == param {
			return ch.Col(j), nil
		}
	}
	return nil, fmt.Errorf("report: chain has no parameter %q", param)
}

func binCounts(xs []float64, n int) []float64 {
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	counts := make([]float64, n)
	for _, x := range xs {
		i := int(float64(n) * (x - lo) / (hi - lo))
		if i >= n {
			i = n - 1
		}
		counts[i]++
	}
	return counts
}

func meanStd(p chain.ParamSummary) string {
	return fmt.Sprintf("%.3f±%.3f", p.Mean, p.Std)
}

// essRate is the smallest per-parameter effective sample size per
// second of sampling, the efficiency figure the comparison ranks by.
func essRate(run bench.Run) string {
	if run.Elapsed <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f", run.Summary.MinESS()/run.Elapsed.Seconds())
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
