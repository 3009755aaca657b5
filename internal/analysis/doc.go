// Package analysis provides post-run analysis of stored series.
//
//   - [Spectrum]: one-sided power spectrum of a uniformly sampled series
//   - [DominantFrequency]: strongest non-DC frequency, e.g. vortex shedding
//     behind an obstacle
//   - [Summarize]: mean, deviation and range
//   - [SettlingIndex]: first sample after which a series stays near its
//     final value
//
// # Shedding Frequency
//
// For an LBM cylinder run with a wake probe:
//
//	f, _ := analysis.DominantFrequency(probe, 1)
//	strouhal := f * diameter / inflow
package analysis
