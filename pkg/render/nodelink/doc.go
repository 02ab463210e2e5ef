// Package nodelink renders laid-out trees as node-link diagrams.
//
// # Overview
//
// [RenderSVG] draws a centered [layout.Hierarchy] the way the browser viewer
// does: a small circle per node (filled for internal nodes) and a horizontal
// cubic curve per parent/child link, all inside a zoom group whose transform
// can be reset independently of the tree.
//
//	h = layout.Center(h, 520)
//	svg := nodelink.RenderSVG(h, nodelink.Options{
//		Width:  960,
//		Height: 600,
//		Margin: render.DefaultMargin,
//	})
//
// Labels are off by default; large ASTs become unreadable with them.
//
// # DOT Export
//
// [ToDOT] emits the same tree as labelled Graphviz boxes (rankdir=LR) for
// use with external tools, and [RenderDOTSVG] renders it in-process.
//
// # Dependencies
//
// DOT rendering uses [github.com/goccy/go-graphviz]. PDF and PNG conversion
// is done by the parent render package and requires librsvg.
package nodelink
