// Package viz renders stored runs in the terminal.
//
//   - [Chart]: an asciigraph line chart of one series, downsampled to fit
//   - [Browser]: a Bubble Tea program to page through every series of a run
//   - [Progress]: a simulator observer drawing a progress bar
//
// # Browser Key Bindings
//
//	←/→ h/l - Previous/next series
//	↑/↓ k/j - Grow/shrink the visible window
//	[/]     - Pan the window
//	/       - Filter series by name
//	T       - Cycle color themes
//	q       - Quit
package viz
