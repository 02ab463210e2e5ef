// Package layout positions display trees and centers the result in a viewport.
//
// # Overview
//
// A layout [Engine] assigns every node of a [display.Node] tree two
// coordinates:
//
//   - Perpendicular: the axis along which siblings spread
//   - Depth: the axis along which generations spread
//
// Two engines are provided. [Tidy] is a Reingold-Tilford tidy tree (the
// Buchheim linear-time variant) that fits the tree into a [Box]. [Graphviz]
// delegates to Graphviz's dot algorithm and rescales its output to the box.
//
// Engines anchor coordinates wherever their algorithm puts them. [Center]
// computes a single perpendicular offset that places the tree exactly in the
// middle of the viewport, whatever its branching factor or depth asymmetry.
//
//	h, err := layout.Tidy{}.Layout(root, layout.Box{Breadth: 520, Depth: 460})
//	centered := layout.Center(h, 520)
package layout

import (
	"fmt"
	"slices"

	"github.com/matzehuels/astview/pkg/display"
)

// Engine names.
const (
	EngineTidy     = "tidy"
	EngineGraphviz = "graphviz"
)

// Point is the position of one display node.
type Point struct {
	Index         int     `json:"index"`
	Parent        int     `json:"parent"` // -1 for the root
	Name          string  `json:"name"`
	Perpendicular float64 `json:"perpendicular"`
	Depth         float64 `json:"depth"`
	Level         int     `json:"level"`
	HasChildren   bool    `json:"has_children"`
}

// Link connects a parent point to a child point by index.
type Link struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// Box is the area a layout must fit in.
type Box struct {
	Breadth float64 `json:"breadth"` // perpendicular extent
	Depth   float64 `json:"depth"`   // depth extent
}

// Hierarchy is the laid-out tree: points in pre-order plus parent/child links.
type Hierarchy struct {
	Points []Point `json:"points"`
	Links  []Link  `json:"links"`
	Offset float64 `json:"offset"` // perpendicular offset applied by Center
}

// Engine computes coordinates for a display tree.
type Engine interface {
	Name() string
	Layout(root *display.Node, box Box) (Hierarchy, error)
}

// New returns the engine registered under name.
func New(name string) (Engine, error) {
	switch name {
	case EngineTidy, "":
		return Tidy{}, nil
	case EngineGraphviz:
		return Graphviz{}, nil
	default:
		return nil, fmt.Errorf("unknown layout engine: %q (must be one of: %s, %s)", name, EngineTidy, EngineGraphviz)
	}
}

// Names lists the supported engine names.
func Names() []string {
	return []string{EngineTidy, EngineGraphviz}
}

// IsValid reports whether name is a supported engine.
func IsValid(name string) bool {
	return slices.Contains(Names(), name)
}

// flatten lists the tree in pre-order with parent indices and links. Engines
// share it so point order is identical whichever engine ran.
func flatten(root *display.Node) ([]*display.Node, Hierarchy) {
	var nodes []*display.Node
	var h Hierarchy
	var visit func(n *display.Node, parent, level int)
	visit = func(n *display.Node, parent, level int) {
		idx := len(nodes)
		nodes = append(nodes, n)
		h.Points = append(h.Points, Point{
			Index:       idx,
			Parent:      parent,
			Name:        n.Name,
			Level:       level,
			HasChildren: !n.IsLeaf(),
		})
		if parent >= 0 {
			h.Links = append(h.Links, Link{Source: parent, Target: idx})
		}
		for _, c := range n.Children {
			visit(c, idx, level+1)
		}
	}
	if root != nil {
		visit(root, -1, 0)
	}
	return nodes, h
}
