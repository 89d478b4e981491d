package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Autocovariance estimates the lag autocovariances of xs up to maxLag.
// Zero-padding to twice the length keeps the circular convolution from
// wrapping.
func Autocovariance(xs []float64, maxLag int) []float64 {
	n := len(xs)
	if n == 0 {
		return nil
	}
	if maxLag >= n {
		maxLag = n - 1
	}

	mean := stat.Mean(xs, nil)
	m := nextPow2(2 * n)
	padded := make([]float64, m)
	for i, x := range xs {
		padded[i] = x - mean
	}

	freq := FFT(padded)
	for k, v := range freq {
		re, im := real(v), imag(v)
		freq[k] = complex(re*re+im*im, 0)
	}
	acov := IFFT(freq)

	out := make([]float64, maxLag+1)
	for k := range out {
		out[k] = real(acov[k]) / float64(n)
	}
	return out
}

// ESS estimates the effective sample size of one parameter's draws.
// Autocorrelations are summed in adjacent pairs until a pair sum turns
// negative, with the running pair sums forced monotone (Geyer's initial
// monotone sequence). A chain that never moves has zero variance and
// reports an ESS of one.
func ESS(xs []float64) float64 {
	n := len(xs)
	if n < 4 {
		return float64(n)
	}
	acov := Autocovariance(xs, n/2)
	if acov[0] <= 0 {
		return 1
	}

	tau := 0.0
	prev := math.Inf(1)
	for k := 0; 2*k+1 < len(acov); k++ {
		g := (acov[2*k] + acov[2*k+1]) / acov[0]
		if g < 0 {
			break
		}
		if g > prev {
			g = prev
		}
		tau += g
		prev = g
	}
	tau = 2*tau - 1
	if tau < 1 {
		tau = 1
	}
	return float64(n) / tau
}
