package bench_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"lvbench/internal/backends"
	"lvbench/internal/bench"
)

func TestBench(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Bench Suite")
}

// quick trims the default experiment down to test size.
func quick(names ...string) bench.Experiment {
	exp := bench.Default()
	exp.Backends = names
	exp.Sampler = backends.Config{
		Samples:       300,
		Burn:          100,
		Seed:          3,
		ProposalScale: 0.05,
		ModelStep:     0.1,
		Leapfrogs:     5,
		StepSize:      0.02,
		WarmStart:     50,
	}
	return exp
}

var _ = Describe("Experiment", func() {
	It("validates the default configuration", func() {
		Expect(bench.Default().Validate()).To(Succeed())
	})

	It("rejects malformed configurations", func() {
		exp := bench.Default()
		exp.Truth = []float64{1.5}
		Expect(exp.Validate()).NotTo(Succeed())

		exp = bench.Default()
		exp.T1 = exp.T0
		Expect(exp.Validate()).NotTo(Succeed())

		exp = bench.Default()
		exp.Backends = nil
		Expect(exp.Validate()).NotTo(Succeed())
	})
})

var _ = Describe("MakeDataset", func() {
	It("is reproducible from the experiment alone", func() {
		exp := bench.Default()
		a, err := bench.MakeDataset(exp)
		Expect(err).NotTo(HaveOccurred())
		b, err := bench.MakeDataset(exp)
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Times).To(Equal(exp.Grid))
		Expect(a.Prey).To(Equal(b.Prey))
		Expect(a.Predator).To(Equal(b.Predator))
	})

	It("changes with the seed", func() {
		exp := bench.Default()
		a, err := bench.MakeDataset(exp)
		Expect(err).NotTo(HaveOccurred())
		exp.Seed = 2
		b, err := bench.MakeDataset(exp)
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Prey).NotTo(Equal(b.Prey))
	})
})

var _ = Describe("Driver", func() {
	It("records a failing backend and keeps going", func() {
		exp := quick("cmdstan", "gonum-mh")
		dr := &bench.Driver{}

		res, err := dr.Run(context.Background(), exp)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Runs).To(HaveLen(2))

		stan := res.Runs[0]
		Expect(stan.Backend).To(Equal("cmdstan"))
		Expect(stan.Failed()).To(BeTrue())
		Expect(errors.Is(stan.Err, backends.ErrBackendFailure)).To(BeTrue())

		mh := res.Runs[1]
		Expect(mh.Failed()).To(BeFalse())
		Expect(mh.Chain.Len()).To(Equal(300))
		Expect(mh.Chain.Names).To(Equal(backends.ParamNames()))
		Expect(mh.Elapsed).To(BeNumerically(">", 0))
	})

	It("records unknown backends without aborting the benchmark", func() {
		exp := quick("no-such-sampler", "gonum-mh")
		res, err := (&bench.Driver{}).Run(context.Background(), exp)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Runs[0].Failed()).To(BeTrue())
		Expect(res.Runs[1].Failed()).To(BeFalse())
	})

	It("honors the per-backend timeout", func() {
		exp := quick("gonum-mh")
		exp.Timeout = time.Nanosecond

		res, err := (&bench.Driver{}).Run(context.Background(), exp)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Runs[0].Failed()).To(BeTrue())
		Expect(errors.Is(res.Runs[0].Err, context.DeadlineExceeded)).To(BeTrue())
	})

	It("reports progress as each backend finishes", func() {
		exp := quick("gonum-mh")
		var seen []string
		dr := &bench.Driver{Progress: func(r bench.Run) { seen = append(seen, r.Backend) }}

		_, err := dr.Run(context.Background(), exp)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]string{"gonum-mh"}))
	})

	It("recovers the truth loosely with the random-walk backend", func() {
		exp := quick("gonum-mh")
		exp.Sampler.Samples = 2000
		exp.Sampler.Burn = 500

		res, err := (&bench.Driver{}).Run(context.Background(), exp)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Runs[0].Failed()).To(BeFalse())

		s := res.Runs[0].Summary
		Expect(s.Param("a").Mean).To(BeNumerically("~", 1.5, 0.5))
		Expect(s.Param("c").Mean).To(BeNumerically("~", 3.0, 0.75))
		Expect(s.Param("sigma").Mean).To(BeNumerically(">", 0.1))
		Expect(s.Param("sigma").Mean).To(BeNumerically("<", 1.5))
	})

	It("concentrates on the truth when the data are exact", func() {
		exp := quick("gonum-mh")
		exp.Sigma = 0
		exp.Sampler.Samples = 2000
		exp.Sampler.Burn = 800

		res, err := (&bench.Driver{}).Run(context.Background(), exp)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Runs[0].Failed()).To(BeFalse())

		s := res.Runs[0].Summary
		Expect(s.Param("a").Mean).To(BeNumerically("~", 1.5, 0.2))
		Expect(s.Param("c").Mean).To(BeNumerically("~", 3.0, 0.3))
		Expect(s.Param("sigma").Mean).To(BeNumerically("<", 0.6))
	})
})
