// Package analysis provides convergence diagnostics for posterior
// chains.
//
// The package includes the standard single-chain diagnostics:
//
//   - [ESS]: effective sample size from windowed autocorrelations
//   - [SplitRhat]: potential scale reduction between chain halves
//   - [Autocovariance]: FFT-based lag autocovariances
//
// # Reading the numbers
//
// ESS divided by wall-clock seconds is the efficiency figure that makes
// samplers with different per-draw costs comparable. SplitRhat near one
// means the two halves of the chain sample the same distribution;
// values above about 1.05 suggest the chain has not converged.
package analysis
