package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/astview/pkg/layout"
	"github.com/matzehuels/astview/pkg/render"
)

// ToDOT converts a hierarchy to Graphviz DOT. Nodes are named n<index> and
// labelled with their display name; the result can be rendered with
// [RenderDOTSVG] or processed by external Graphviz tools.
func ToDOT(h layout.Hierarchy) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.15;\n")
	buf.WriteString("\n")

	for _, p := range h.Points {
		attrs := fmt.Sprintf("label=%q", p.Name)
		if !p.HasChildren {
			attrs += ", fillcolor=\"#f4f4f4\""
		}
		fmt.Fprintf(&buf, "  n%d [%s];\n", p.Index, attrs)
	}

	buf.WriteString("\n")
	for _, l := range h.Links {
		fmt.Fprintf(&buf, "  n%d -> n%d;\n", l.Source, l.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderDOTSVG renders DOT source to SVG using Graphviz.
func RenderDOTSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a plain
// pixel-sized one.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%s" height="%s">`,
		render.Num(w), render.Num(h), render.Num(w), render.Num(h))
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
