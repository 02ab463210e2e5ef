package nodelink

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/astview/pkg/layout"
	"github.com/matzehuels/astview/pkg/render"
)

// DefaultRadius is the node circle radius.
const DefaultRadius = 4.0

// labelGap is the distance between a node and its label.
const labelGap = 13.0

const diagramCSS = `
    .link { fill: none; stroke: #ccc; stroke-width: 1.5px; }
    .node circle { fill: #fff; stroke: steelblue; stroke-width: 1.5px; }
    .node--internal circle { fill: #555; }
    .node text { font: 10px sans-serif; }`

// Options configures SVG rendering.
type Options struct {
	Width  float64          // frame width
	Height float64          // frame height
	Margin render.Margin    // offset of the tree inside the zoom group
	Radius float64          // node radius, DefaultRadius when zero
	Labels bool             // draw node names next to the circles
	View   render.Transform // pan/zoom applied to the whole diagram
}

// RenderSVG draws a centered hierarchy. Depth runs left to right and the
// perpendicular axis top to bottom, so a tree reads like an outline.
func RenderSVG(h layout.Hierarchy, opts Options) []byte {
	radius := opts.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%s" height="%s">`+"\n",
		render.Num(opts.Width), render.Num(opts.Height), render.Num(opts.Width), render.Num(opts.Height))
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", diagramCSS)
	fmt.Fprintf(&buf, `  <g class="zoom" transform="%s">`+"\n", opts.View.SVG())
	fmt.Fprintf(&buf, `    <g transform="translate(%s,%s)">`+"\n", render.Num(opts.Margin.Left), render.Num(opts.Margin.Top))

	for _, l := range h.Links {
		fmt.Fprintf(&buf, `      <path class="link" d="%s"/>`+"\n", LinkPath(h.Points[l.Source], h.Points[l.Target]))
	}
	for _, p := range h.Points {
		renderNode(&buf, p, radius, opts.Labels)
	}

	buf.WriteString("    </g>\n  </g>\n</svg>\n")
	return buf.Bytes()
}

func renderNode(buf *bytes.Buffer, p layout.Point, radius float64, labels bool) {
	class := "node node--leaf"
	if p.HasChildren {
		class = "node node--internal"
	}
	fmt.Fprintf(buf, `      <g class="%s" transform="translate(%s,%s)">`, class, render.Num(p.Depth), render.Num(p.Perpendicular))
	fmt.Fprintf(buf, `<circle r="%s"/>`, render.Num(radius))
	if labels {
		x, anchor := labelGap, "start"
		if p.HasChildren {
			x, anchor = -labelGap, "end"
		}
		fmt.Fprintf(buf, `<text dy=".31em" x="%s" text-anchor="%s">%s</text>`, render.Num(x), anchor, html.EscapeString(p.Name))
	}
	buf.WriteString("</g>\n")
}

// LinkPath returns a horizontal cubic Bézier from parent to child with both
// control points at the midpoint depth.
func LinkPath(from, to layout.Point) string {
	mid := (from.Depth + to.Depth) / 2
	return fmt.Sprintf("M%s,%sC%s,%s %s,%s %s,%s",
		render.Num(from.Depth), render.Num(from.Perpendicular),
		render.Num(mid), render.Num(from.Perpendicular),
		render.Num(mid), render.Num(to.Perpendicular),
		render.Num(to.Depth), render.Num(to.Perpendicular))
}
