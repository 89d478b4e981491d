package analysis

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestFFTRoundTrip(t *testing.T) {
	data := []float64{1, 2.5, -3, 0.5, 4, -1, 0, 2}

	back := IFFT(FFT(data))
	for i, v := range back {
		if math.Abs(real(v)-data[i]) > 1e-9 {
			t.Errorf("sample %d: expected %f, got %f", i, data[i], real(v))
		}
		if math.Abs(imag(v)) > 1e-9 {
			t.Errorf("sample %d: expected real value, got imaginary part %g", i, imag(v))
		}
	}
}

func TestFFTOddLengthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non power of 2 length")
		}
	}()
	FFT([]float64{1, 2, 3})
}

func TestAutocovarianceLagZero(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	acov := Autocovariance(xs, 3)
	if len(acov) != 4 {
		t.Fatalf("expected 4 lags, got %d", len(acov))
	}

	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	want := 0.0
	for _, x := range xs {
		want += (x - mean) * (x - mean)
	}
	want /= float64(len(xs))

	if math.Abs(acov[0]-want) > 1e-9 {
		t.Errorf("expected lag-0 autocovariance %f, got %f", want, acov[0])
	}
}

func TestESSIndependentDraws(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 2000
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = rng.NormFloat64()
	}

	ess := ESS(xs)
	if ess < float64(n)/2 || ess > 2*float64(n) {
		t.Errorf("expected ESS near %d for independent draws, got %f", n, ess)
	}
}

func TestESSCorrelatedDraws(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 2000
	xs := make([]float64, n)
	for i := 0; i < n; i += 2 {
		v := rng.NormFloat64()
		xs[i] = v
		xs[i+1] = v
	}

	ess := ESS(xs)
	if ess > 0.75*float64(n) {
		t.Errorf("expected ESS well below %d for duplicated draws, got %f", n, ess)
	}
}

func TestESSConstantChain(t *testing.T) {
	xs := make([]float64, 100)
	for i := range xs {
		xs[i] = 3
	}
	if ess := ESS(xs); ess != 1 {
		t.Errorf("expected ESS 1 for a chain that never moves, got %f", ess)
	}
}

func TestESSShortChain(t *testing.T) {
	if ess := ESS([]float64{1, 2, 3}); ess != 3 {
		t.Errorf("expected ESS 3 for a 3-draw chain, got %f", ess)
	}
}

func TestSplitRhatStationary(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	xs := make([]float64, 1000)
	for i := range xs {
		xs[i] = rng.NormFloat64()
	}

	r := SplitRhat(xs)
	if math.Abs(r-1) > 0.1 {
		t.Errorf("expected split Rhat near 1 for stationary chain, got %f", r)
	}
}

func TestSplitRhatTrending(t *testing.T) {
	xs := make([]float64, 100)
	for i := range xs {
		xs[i] = float64(i)
	}

	r := SplitRhat(xs)
	if r < 1.5 {
		t.Errorf("expected split Rhat well above 1 for trending chain, got %f", r)
	}
}

func TestSplitRhatDegenerate(t *testing.T) {
	if r := SplitRhat([]float64{1, 2, 3}); !math.IsNaN(r) {
		t.Errorf("expected NaN for a 3-draw chain, got %f", r)
	}

	xs := make([]float64, 50)
	if r := SplitRhat(xs); !math.IsNaN(r) {
		t.Errorf("expected NaN for a constant chain, got %f", r)
	}
}
