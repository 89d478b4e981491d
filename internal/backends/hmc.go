package backends

import (
	"context"
	mrand "math/rand"

	"bitbucket.org/dtolpin/infergo/infer"

	"lvbench/internal/chain"
)

// HMC samples the differentiable model with infergo's Hamiltonian
// Monte Carlo at a fixed step size and leapfrog count.
type HMC struct{}

func (HMC) Name() string { return "infergo-hmc" }

func (b HMC) Run(ctx context.Context, prob Problem, cfg Config) (*chain.Chain, error) {
	cfg = cfg.normalized()
	m, x, err := newModel(prob, cfg)
	if err != nil {
		return nil, Fail(b.Name(), err)
	}

	// infergo draws momenta from the package-global source.
	mrand.Seed(int64(cfg.Seed))

	hmc := &infer.HMC{
		L:   cfg.Leapfrogs,
		Eps: cfg.StepSize,
	}
	samples := make(chan []float64)
	hmc.Sample(m, x, samples)
	defer stop(hmc, samples)

	for i := 0; i < cfg.Burn; i++ {
		if _, err := next(ctx, samples); err != nil {
			return nil, Fail(b.Name(), err)
		}
	}
	return collect(ctx, b.Name(), samples, cfg.Samples)
}
