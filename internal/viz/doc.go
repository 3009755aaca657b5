// Package viz draws running fluid solvers in the terminal.
//
// Particles and lattice cells are plotted onto a braille [Canvas] through a
// [Plotter], which implements the solvers' render callback. [Model] is a
// Bubble Tea program that steps one solver per frame; [App] lists every
// preset and opens a [Model] for the chosen one.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Rebuild the scene
//	F     - Push the fluid at the domain centre
//	T     - Cycle theme and particle palette
//	?     - Show help overlay
package viz
