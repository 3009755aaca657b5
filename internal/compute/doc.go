// Package compute provides the execution strategies solvers run their
// per-particle and per-cell phases on.
//
// Each solver owns an [Executor] chosen at initialization:
//
//   - [CPUBackend]: serial reference path, always available
//   - [ParallelBackend]: goroutine pool over contiguous index ranges
//   - OpenGLBackend: compute shaders, built with the opengl tag
//
// # Fallback
//
// The accelerated backend is built lazily on first use. A failed build, or
// a later [Executor.Demote], downgrades that executor to the CPU backend
// for good:
//
//	exec := compute.NewExecutor(true, compute.WithLogger(logger))
//	exec.Backend().Dispatch(n, func(lo, hi int) {
//		for i := lo; i < hi; i++ {
//			density[i] = ...
//		}
//	})
package compute
