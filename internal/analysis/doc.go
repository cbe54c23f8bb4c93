// Package analysis summarises recorded launches.
//
//   - [Launch]: release state, landing point, range and flight time
//   - [PhasePortrait]: two frame-log columns plotted against each other
//
// Both work on the stored frame log, so a saved run can be analysed without
// re-running it.
package analysis
