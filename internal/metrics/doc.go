// Package metrics provides run-level measurements fed from solver
// diagnostics after every step.
//
// Samplers such as [MassDrift] and [Probe] also report a per-step value
// that becomes a column of the stored series.
package metrics
