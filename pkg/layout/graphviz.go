package layout

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/astview/pkg/display"
)

// Graphviz lays trees out with Graphviz's dot algorithm (rankdir=LR) and
// rescales the resulting node positions to the box. It is slower than [Tidy]
// but produces compact layouts for very wide trees.
type Graphviz struct{}

// Name returns "graphviz".
func (Graphviz) Name() string { return EngineGraphviz }

// Layout positions root within box.
func (Graphviz) Layout(root *display.Node, box Box) (Hierarchy, error) {
	_, h := flatten(root)
	if len(h.Points) == 0 {
		return h, nil
	}

	out, err := runDot(layoutDOT(h))
	if err != nil {
		return Hierarchy{}, err
	}
	pos, err := parsePositions(out, len(h.Points))
	if err != nil {
		return Hierarchy{}, err
	}

	// dot's x is the rank axis; y grows upward, so it is flipped to keep the
	// first child nearest the origin.
	minX, maxX, minY, maxY := bounds(pos)
	for i := range h.Points {
		h.Points[i].Depth = rescale(pos[i][0], minX, maxX, box.Depth, 0)
		h.Points[i].Perpendicular = rescale(maxY-pos[i][1]+minY, minY, maxY, box.Breadth, box.Breadth/2)
	}
	return h, nil
}

// layoutDOT emits unlabeled point nodes n0..nK so positions can be recovered
// by index.
func layoutDOT(h Hierarchy) []byte {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.1;\n")
	buf.WriteString("  node [shape=point, width=0.05];\n")
	for _, p := range h.Points {
		fmt.Fprintf(&buf, "  n%d;\n", p.Index)
	}
	for _, l := range h.Links {
		fmt.Fprintf(&buf, "  n%d -> n%d;\n", l.Source, l.Target)
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

func runDot(dot []byte) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.XDOT, &buf); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	nodeStmtRe = regexp.MustCompile(`(?m)^\s*n(\d+)\s*\[([^\]]*)\]`)
	posRe      = regexp.MustCompile(`pos="([-0-9.e+]+),([-0-9.e+]+)"`)
)

func parsePositions(out []byte, n int) ([][2]float64, error) {
	pos := make([][2]float64, n)
	seen := make([]bool, n)
	for _, m := range nodeStmtRe.FindAllSubmatch(out, -1) {
		idx, err := strconv.Atoi(string(m[1]))
		if err != nil || idx < 0 || idx >= n {
			continue
		}
		pm := posRe.FindSubmatch(m[2])
		if pm == nil {
			continue
		}
		x, errX := strconv.ParseFloat(string(pm[1]), 64)
		y, errY := strconv.ParseFloat(string(pm[2]), 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("bad position for n%d: %q", idx, pm[0])
		}
		pos[idx] = [2]float64{x, y}
		seen[idx] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("graphviz output has no position for n%d", i)
		}
	}
	return pos, nil
}

func bounds(pos [][2]float64) (minX, maxX, minY, maxY float64) {
	minX, maxX = pos[0][0], pos[0][0]
	minY, maxY = pos[0][1], pos[0][1]
	for _, p := range pos[1:] {
		minX, maxX = min(minX, p[0]), max(maxX, p[0])
		minY, maxY = min(minY, p[1]), max(maxY, p[1])
	}
	return
}

// rescale maps v from [lo, hi] onto [0, extent]; a degenerate range maps to
// fallback.
func rescale(v, lo, hi, extent, fallback float64) float64 {
	if hi == lo {
		return fallback
	}
	return (v - lo) / (hi - lo) * extent
}
