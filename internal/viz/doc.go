// Package viz draws a running simulation in the terminal with Bubble Tea.
//
// The view only reads [sim.FrameData]; it never reaches into the physics
// state. The scene is drawn on a braille [Canvas] through a [Viewport] that
// widens to follow the projectile after release.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to the at-rest state
//	D     - Leave degraded mode
//	T     - Cycle color themes
//	[ ]   - Step back/forward through recorded frames
//	?     - Toggle help
//	Q     - Quit
package viz
