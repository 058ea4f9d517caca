// Package viz provides an interactive terminal browser for stored POD runs.
//
// The browser is a Bubble Tea program that pages through the reconstructed field
// and each retained spatial mode, drawing them as coloured heat maps.
//
// # Key Bindings
//
//	l/right - Next page
//	h/left  - Previous page
//	g/G     - First/last page
//	t       - Cycle colour themes
//	q       - Quit
package viz
