package backends

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/dtolpin/infergo/infer"

	"lvbench/internal/chain"
	"lvbench/internal/lvmodel"
)

// newModel builds the differentiable model and its unconstrained
// start point. The start is the prior means, optionally pushed toward
// the posterior mode by a few momentum-optimizer steps.
func newModel(prob Problem, cfg Config) (*lvmodel.Model, []float64, error) {
	if err := prob.validate(); err != nil {
		return nil, nil, err
	}
	if prob.T0 != 0 {
		return nil, nil, fmt.Errorf("differentiable model integrates from t = 0, got t0 = %g", prob.T0)
	}
	m := lvmodel.New(prob.Data.Times, prob.Data.Prey, prob.Data.Predator,
		prob.U0[0], prob.U0[1], cfg.ModelStep)

	theta := make([]float64, m.NTheta())
	prob.Priors.Means(theta)
	x := make([]float64, m.NTheta())
	lvmodel.Unconstrain(x, theta)

	if cfg.WarmStart > 0 {
		opt := &infer.Momentum{Rate: 0.005, Decay: 0.998}
		for i := 0; i < cfg.WarmStart; i++ {
			opt.Step(m, x)
		}
	}
	return m, x, nil
}

type stopper interface{ Stop() }

// stop shuts the sampler down and releases a sender blocked on the
// unbuffered samples channel.
func stop(s stopper, samples <-chan []float64) {
	s.Stop()
	select {
	case <-samples:
	default:
	}
}

// next receives one draw, honoring ctx. A zero-length draw means the
// sampler shut itself down.
func next(ctx context.Context, samples <-chan []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case x := <-samples:
		if len(x) == 0 {
			return nil, errors.New("sampler stopped early")
		}
		return x, nil
	}
}

// collect maps n unconstrained draws back to (a, b, c, d, sigma) and
// accumulates them into a chain.
func collect(ctx context.Context, name string, samples <-chan []float64, n int) (*chain.Chain, error) {
	out := chain.New(ParamNames(), n)
	theta := make([]float64, len(ParamNames()))
	for out.Len() < n {
		x, err := next(ctx, samples)
		if err != nil {
			return nil, Fail(name, fmt.Errorf("after %d draws: %w", out.Len(), err))
		}
		lvmodel.Constrain(theta, x)
		out.Append(theta)
	}
	return out, nil
}
