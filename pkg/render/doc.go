// Package render holds the pieces shared by astview's renderers.
//
// # Overview
//
// The [nodelink] subpackage draws a laid-out tree as an SVG node-link
// diagram. This package provides what every output needs around it:
//
//   - [Margin] and [Transform], the frame geometry and the pan/zoom state
//   - [ToPDF] and [ToPNG], which convert SVG through rsvg-convert
//
// # Format Conversion
//
//	svg, _ := nodelink.RenderSVG(h, nodelink.Options{Width: 960, Height: 600})
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0) // 2x scale
//
// Conversion requires librsvg: brew install librsvg (macOS),
// apt install librsvg2-bin (Linux).
//
// [nodelink]: github.com/matzehuels/astview/pkg/render/nodelink
package render
