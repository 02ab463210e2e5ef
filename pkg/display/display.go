// Package display converts schema-free AST documents into uniform display trees.
//
// # Overview
//
// A layout engine needs every node to look the same: a label and an ordered
// list of children. [Normalize] produces that shape from an arbitrary
// [ast.Value] without knowing anything about the AST's grammar:
//
//   - the node label is its "type" field, or "root"
//   - nested objects become children directly
//   - arrays become a synthetic grouping child "<key> [<n>]"
//   - primitives become leaves "<key>: <value>"
//   - the reserved "type" and "metadata" keys never become children
//
// Normalization never fails. A null input yields the placeholder leaf
// {name: "undefined"}.
//
// # Limitations
//
// Primitive elements inside arrays are dropped. An array such as
// "names": ["a", "b"] contributes no child at all.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/matzehuels/astview/pkg/ast"
)

// Labels used for synthetic nodes.
const (
	UndefinedName = "undefined"
	RootName      = "root"
)

// Node is a display tree node. Children is nil for leaves, never empty.
type Node struct {
	Name     string  `json:"name" bson:"name"`
	Children []*Node `json:"children,omitempty" bson:"children,omitempty"`
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Normalize converts an AST value into a display tree.
func Normalize(v ast.Value) *Node {
	switch v.Kind() {
	case ast.KindNull:
		return &Node{Name: UndefinedName}
	case ast.KindObject:
		return NormalizeNode(v.Node())
	case ast.KindArray:
		return normalizeArray(v.Elems())
	default:
		return &Node{Name: RootName}
	}
}

// NormalizeNode converts an AST object into a display tree.
func NormalizeNode(n *ast.Node) *Node {
	if n == nil {
		return &Node{Name: UndefinedName}
	}
	out := &Node{Name: nameOf(n.Type())}
	for _, f := range n.Fields() {
		if f.Key == ast.KeyType || f.Key == ast.KeyMetadata {
			continue
		}
		out.add(f.Key, f.Value)
	}
	return out
}

// normalizeArray treats a bare array as an object keyed by element index.
func normalizeArray(elems []ast.Value) *Node {
	out := &Node{Name: RootName}
	for i, e := range elems {
		out.add(fmt.Sprint(i), e)
	}
	return out
}

func (n *Node) add(key string, v ast.Value) {
	switch v.Kind() {
	case ast.KindArray:
		var group []*Node
		for _, e := range v.Elems() {
			if e.IsComposite() {
				group = append(group, Normalize(e))
			}
		}
		if len(group) > 0 {
			n.Children = append(n.Children, &Node{
				Name:     fmt.Sprintf("%s [%d]", key, len(group)),
				Children: group,
			})
		}
	case ast.KindObject:
		n.Children = append(n.Children, NormalizeNode(v.Node()))
	case ast.KindNull:
	default:
		n.Children = append(n.Children, &Node{Name: key + ": " + v.Display()})
	}
}

func nameOf(typ ast.Value) string {
	switch typ.Kind() {
	case ast.KindString, ast.KindNumber, ast.KindBool:
		if typ.Truthy() {
			return typ.Display()
		}
	}
	return RootName
}

// =============================================================================
// Traversal
// =============================================================================

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(n *Node, fn func(n *Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

// Count returns the number of nodes in the tree rooted at n.
func Count(n *Node) int {
	count := 0
	Walk(n, func(*Node, int) bool { count++; return true })
	return count
}

// Height returns the depth of the deepest node (0 for a single node).
func Height(n *Node) int {
	h := 0
	Walk(n, func(_ *Node, d int) bool { h = max(h, d); return true })
	return h
}

// Format writes the tree as indented text using box-drawing connectors.
func Format(w io.Writer, n *Node) error {
	var b strings.Builder
	b.WriteString(n.Name)
	b.WriteByte('\n')
	formatChildren(&b, n.Children, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func formatChildren(b *strings.Builder, children []*Node, prefix string) {
	for i, c := range children {
		connector, indent := "├── ", "│   "
		if i == len(children)-1 {
			connector, indent = "└── ", "    "
		}
		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(c.Name)
		b.WriteByte('\n')
		formatChildren(b, c.Children, prefix+indent)
	}
}
