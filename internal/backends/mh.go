package backends

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/samplemv"

	"lvbench/internal/chain"
	"lvbench/internal/posterior"
)

// Draws per Sample call; the context is checked between batches.
const mhBatch = 256

// MH samples the constrained parameters directly with gonum's
// Metropolis-Hastings and a spherical normal random-walk proposal.
// Short pilot chains tune the proposal scale toward cfg.TargetAccept
// before the main chains start.
type MH struct{}

func (MH) Name() string { return "gonum-mh" }

func (b MH) Run(ctx context.Context, prob Problem, cfg Config) (*chain.Chain, error) {
	cfg = cfg.normalized()
	if err := prob.validate(); err != nil {
		return nil, Fail(b.Name(), err)
	}
	target := posterior.New(prob.U0, prob.T0, prob.Data, prob.Priors, prob.Solver)
	init := make([]float64, target.Dim())
	prob.Priors.Means(init)

	scale, err := tuneScale(ctx, target, init, cfg)
	if err != nil {
		return nil, Fail(b.Name(), err)
	}

	// Chains are independent: each gets its own posterior scratch and
	// its own seeded source, so the merged result is reproducible.
	chains := make([]*chain.Chain, cfg.Chains)
	errs := make([]error, cfg.Chains)
	per := cfg.Samples / cfg.Chains
	var wg sync.WaitGroup
	for i := range chains {
		draws := per
		if i == 0 {
			draws += cfg.Samples % cfg.Chains
		}
		wg.Add(1)
		go func(i, draws int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("chain %d panicked: %v", i, r)
				}
			}()
			seed := cfg.Seed + uint64(i)*1000003
			chains[i], errs[i] = runChain(ctx, target.Clone(), init, draws, cfg.Burn, scale, seed)
		}(i, draws)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, Fail(b.Name(), err)
		}
	}
	return chain.Merge(chains...)
}

// Stream runs a single tuned chain, sending a copy of every kept draw
// to sink. It closes sink on return; the live view consumes it.
func (b MH) Stream(ctx context.Context, prob Problem, cfg Config, sink chan<- []float64) error {
	defer close(sink)
	cfg = cfg.normalized()
	if err := prob.validate(); err != nil {
		return Fail(b.Name(), err)
	}
	target := posterior.New(prob.U0, prob.T0, prob.Data, prob.Priors, prob.Solver)
	init := make([]float64, target.Dim())
	prob.Priors.Means(init)

	scale, err := tuneScale(ctx, target, init, cfg)
	if err != nil {
		return Fail(b.Name(), err)
	}
	mh, err := newSampler(target, init, cfg.Burn, scale, rand.NewSource(cfg.Seed))
	if err != nil {
		return Fail(b.Name(), err)
	}

	dim := target.Dim()
	for sent := 0; sent < cfg.Samples; {
		k := cfg.Samples - sent
		if k > 16 {
			k = 16
		}
		batch := mat.NewDense(k, dim, nil)
		mh.Sample(batch)
		for r := 0; r < k; r++ {
			draw := append([]float64(nil), batch.RawRowView(r)...)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case sink <- draw:
			}
			sent++
		}
		mh.Initial = append([]float64(nil), batch.RawRowView(k-1)...)
		mh.BurnIn = 0
	}
	return nil
}

// tuneScale doubles or halves the proposal scale until a short pilot
// chain moves at roughly the target rate. Too small a scale accepts
// nearly everything, so a high move rate grows the proposal.
func tuneScale(ctx context.Context, target *posterior.LogPosterior, init []float64, cfg Config) (float64, error) {
	const (
		pilotDraws = 200
		maxRounds  = 10
		slack      = 0.1
	)
	scale := cfg.ProposalScale
	for round := 0; round < maxRounds; round++ {
		seed := cfg.Seed + uint64(7919*(round+1))
		pilot, err := runChain(ctx, target.Clone(), init, pilotDraws, 0, scale, seed)
		if err != nil {
			return 0, err
		}
		rate := chain.Summarize(pilot).MoveRate
		switch {
		case rate > cfg.TargetAccept+slack:
			scale *= 2
		case rate < cfg.TargetAccept-slack:
			scale /= 2
		default:
			return scale, nil
		}
	}
	return scale, nil
}

func runChain(ctx context.Context, target *posterior.LogPosterior, init []float64, draws, burn int, scale float64, seed uint64) (*chain.Chain, error) {
	mh, err := newSampler(target, init, burn, scale, rand.NewSource(seed))
	if err != nil {
		return nil, err
	}
	dim := target.Dim()
	out := chain.New(ParamNames(), draws)
	for out.Len() < draws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		k := draws - out.Len()
		if k > mhBatch {
			k = mhBatch
		}
		batch := mat.NewDense(k, dim, nil)
		mh.Sample(batch)
		for r := 0; r < k; r++ {
			out.Append(batch.RawRowView(r))
		}
		mh.Initial = append([]float64(nil), batch.RawRowView(k-1)...)
		mh.BurnIn = 0
	}
	return out, nil
}

func newSampler(target *posterior.LogPosterior, init []float64, burn int, scale float64, src rand.Source) (samplemv.MetropolisHastingser, error) {
	dim := target.Dim()
	sigma := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		sigma.SetSym(i, i, scale*scale)
	}
	prop, ok := samplemv.NewProposalNormal(sigma, src)
	if !ok {
		return samplemv.MetropolisHastingser{}, fmt.Errorf("proposal covariance is not positive definite")
	}
	return samplemv.MetropolisHastingser{
		Initial:  append([]float64(nil), init...),
		Target:   target,
		Proposal: prop,
		Src:      src,
		BurnIn:   burn,
		Rate:     1,
	}, nil
}
