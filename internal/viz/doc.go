// Package viz renders breathing-field runs in the terminal.
//
//   - [RenderHeatmap]: half-block heatmap of phi over (time, site)
//   - [Player]: Bubble Tea replay of a stored run
//   - [Canvas]: Braille-based pixel canvas used for the profile view
//   - [Colormap]: plasma, viridis and gray, shared with the image exporters
//
// # Key Bindings
//
//	Space - Play/Pause
//	[ ]   - Step one sample
//	H/L   - Select site
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
package viz
