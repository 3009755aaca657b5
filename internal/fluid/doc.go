// Package fluid defines the contracts shared by every solver in the engine.
//
// The three numerical models live in their own packages and share nothing
// but the types declared here:
//
//   - [Solver]: the per-tick surface driven by the run loop and viewers
//   - [Renderer]: the draw primitive a solver emits one call per particle or cell to
//   - [Diagnostics]: a cheap summary used by metrics and stability checks
//   - [State]: the lifecycle every solver walks through
//
// # Example
//
//	s := sph.New(nil)
//	if err := s.Initialize(sph.DefaultParams()); err != nil {
//		return err
//	}
//	s.AddFluidVolume(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 1000)
//	for i := 0; i < 10; i++ {
//		s.Update(1.0 / 120)
//	}
//
// # Thread Safety
//
// Solver instances are NOT safe for concurrent use. One goroutine owns a
// solver; viewers and servers serialize access around Update and Render.
package fluid
