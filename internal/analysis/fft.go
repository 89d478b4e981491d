package analysis

import (
	"math"
	"math/cmplx"
)

// FFT computes the discrete Fourier transform of a real sequence by
// radix-2 recursion. The length must be a power of two.
func FFT(data []float64) []complex128 {
	x := make([]complex128, len(data))
	for i, v := range data {
		x[i] = complex(v, 0)
	}
	return fft(x)
}

// IFFT inverts a transform produced by FFT.
func IFFT(freq []complex128) []complex128 {
	n := len(freq)
	conj := make([]complex128, n)
	for i, v := range freq {
		conj[i] = cmplx.Conj(v)
	}
	out := fft(conj)
	for i := range out {
		out[i] = cmplx.Conj(out[i]) / complex(float64(n), 0)
	}
	return out
}

func fft(x []complex128) []complex128 {
	n := len(x)
	if n <= 1 {
		return x
	}
	if n%2 != 0 {
		panic("fft requires power of 2 length")
	}

	even := make([]complex128, n/2)
	odd := make([]complex128, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = x[2*i]
		odd[i] = x[2*i+1]
	}

	feven := fft(even)
	fodd := fft(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}
	return result
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
