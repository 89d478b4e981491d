package backends

import (
	"context"
	mrand "math/rand"

	"bitbucket.org/dtolpin/infergo/infer"

	"lvbench/internal/chain"
)

// NUTS samples the differentiable model with infergo's No-U-Turn
// sampler. Dual-averaging adaptation tunes the step size toward a
// target tree depth and consumes the warmup draws.
type NUTS struct{}

func (NUTS) Name() string { return "infergo-nuts" }

func (b NUTS) Run(ctx context.Context, prob Problem, cfg Config) (*chain.Chain, error) {
	cfg = cfg.normalized()
	m, x, err := newModel(prob, cfg)
	if err != nil {
		return nil, Fail(b.Name(), err)
	}

	// infergo draws momenta from the package-global source.
	mrand.Seed(int64(cfg.Seed))

	nuts := &infer.NUTS{Eps: cfg.StepSize}
	samples := make(chan []float64)
	nuts.Sample(m, x, samples)
	defer stop(nuts, samples)

	da := &infer.DepthAdapter{
		DualAveraging: infer.DualAveraging{Rate: 0.05},
		Depth:         cfg.Depth,
		NAdpt:         10,
	}
	batch := cfg.Burn / da.NAdpt
	if batch < 1 {
		batch = 1
	}
	da.Adapt(nuts, samples, batch)

	return collect(ctx, b.Name(), samples, cfg.Samples)
}
