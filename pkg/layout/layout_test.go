package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/matzehuels/astview/pkg/display"
)

const eps = 1e-9

func leaf(name string) *display.Node { return &display.Node{Name: name} }

func node(name string, children ...*display.Node) *display.Node {
	return &display.Node{Name: name, Children: children}
}

// wideTree builds an unbalanced tree: a deep left spine and a wide right fan.
func wideTree() *display.Node {
	fan := make([]*display.Node, 6)
	for i := range fan {
		fan[i] = leaf(fmt.Sprintf("f%d", i))
	}
	spine := node("s0", node("s1", node("s2", leaf("s3"))))
	return node("root", spine, node("fan", fan...), leaf("x"))
}

func points(perp ...float64) []Point {
	out := make([]Point, len(perp))
	for i, v := range perp {
		out[i] = Point{Index: i, Perpendicular: v}
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", EngineTidy, false},
		{"tidy", EngineTidy, false},
		{"graphviz", EngineGraphviz, false},
		{"radial", "", true},
	}
	for _, tt := range tests {
		e, err := New(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && e.Name() != tt.want {
			t.Errorf("New(%q).Name() = %q, want %q", tt.name, e.Name(), tt.want)
		}
	}
	if !IsValid("tidy") || IsValid("radial") {
		t.Error("IsValid mismatch")
	}
}

func TestFlatten(t *testing.T) {
	_, h := flatten(node("a", node("b", leaf("c")), leaf("d")))
	names := ""
	for _, p := range h.Points {
		names += p.Name
	}
	if names != "abcd" {
		t.Errorf("pre-order = %q, want abcd", names)
	}
	wantParents := []int{-1, 0, 1, 0}
	for i, p := range h.Points {
		if p.Parent != wantParents[i] {
			t.Errorf("point %d parent = %d, want %d", i, p.Parent, wantParents[i])
		}
	}
	if len(h.Links) != 3 {
		t.Errorf("links = %d, want 3", len(h.Links))
	}
	if _, h := flatten(nil); len(h.Points) != 0 {
		t.Error("flatten(nil) should be empty")
	}
}

func TestTidySingleNode(t *testing.T) {
	h, err := Tidy{}.Layout(leaf("root"), Box{Breadth: 100, Depth: 200})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Points) != 1 {
		t.Fatalf("points = %d", len(h.Points))
	}
	if p := h.Points[0]; p.Perpendicular != 50 || p.Depth != 0 {
		t.Errorf("single node at (%v, %v), want (50, 0)", p.Perpendicular, p.Depth)
	}
}

func TestTidyTwoChildren(t *testing.T) {
	h, err := Tidy{}.Layout(node("r", leaf("a"), leaf("b")), Box{Breadth: 100, Depth: 200})
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]float64{{50, 0}, {25, 200}, {75, 200}}
	for i, w := range want {
		p := h.Points[i]
		if math.Abs(p.Perpendicular-w[0]) > eps || math.Abs(p.Depth-w[1]) > eps {
			t.Errorf("point %s = (%v, %v), want %v", p.Name, p.Perpendicular, p.Depth, w)
		}
	}
}

func TestTidyProperties(t *testing.T) {
	box := Box{Breadth: 520, Depth: 460}
	h, err := Tidy{}.Layout(wideTree(), box)
	if err != nil {
		t.Fatal(err)
	}

	lastAtLevel := map[int]float64{}
	maxLevel := 0
	for _, p := range h.Points {
		if p.Perpendicular < -eps || p.Perpendicular > box.Breadth+eps {
			t.Errorf("%s perpendicular %v outside [0, %v]", p.Name, p.Perpendicular, box.Breadth)
		}
		if prev, ok := lastAtLevel[p.Level]; ok && p.Perpendicular <= prev {
			t.Errorf("%s at level %d overlaps previous node (%v <= %v)", p.Name, p.Level, p.Perpendicular, prev)
		}
		lastAtLevel[p.Level] = p.Perpendicular
		maxLevel = max(maxLevel, p.Level)
	}
	for _, p := range h.Points {
		want := float64(p.Level) * box.Depth / float64(maxLevel)
		if math.Abs(p.Depth-want) > eps {
			t.Errorf("%s depth = %v, want %v", p.Name, p.Depth, want)
		}
	}

	// Parents sit midway between their first and last child.
	children := map[int][]int{}
	for _, l := range h.Links {
		children[l.Source] = append(children[l.Source], l.Target)
	}
	for parent, kids := range children {
		mid := (h.Points[kids[0]].Perpendicular + h.Points[kids[len(kids)-1]].Perpendicular) / 2
		if math.Abs(h.Points[parent].Perpendicular-mid) > 1e-6 {
			t.Errorf("%s not centered over children: %v vs %v", h.Points[parent].Name, h.Points[parent].Perpendicular, mid)
		}
	}
}

func TestOffset(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		extent float64
		want   float64
	}{
		{"Empty", nil, 520, 0},
		{"Single", []float64{10}, 100, 40},
		{"AlreadyCentered", []float64{10, 90}, 100, 0},
		{"LeftHeavy", []float64{0, 20, 40}, 100, 30},
		{"Negative", []float64{-50, 50}, 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Offset(points(tt.values...), tt.extent); math.Abs(got-tt.want) > eps {
				t.Errorf("Offset(%v, %v) = %v, want %v", tt.values, tt.extent, got, tt.want)
			}
		})
	}
}

func TestCenterIdentity(t *testing.T) {
	sets := [][]float64{
		{0},
		{3, 1, 2},
		{-120.5, 7, 300.25},
		{1e-3, 1e3},
		{42, 42, 42},
	}
	for _, extent := range []float64{0, 100, 520, 1280} {
		for _, values := range sets {
			pts := points(values...)
			offset := Offset(pts, extent)
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, p := range pts {
				a := ApplyOffset(p, offset)
				lo, hi = min(lo, a), max(hi, a)
			}
			if math.Abs(lo+hi-extent) > 1e-6 {
				t.Errorf("extent %v values %v: min+max = %v", extent, values, lo+hi)
			}
		}
	}
}

func TestCenterHierarchy(t *testing.T) {
	h, err := Tidy{}.Layout(wideTree(), Box{Breadth: 300, Depth: 200})
	if err != nil {
		t.Fatal(err)
	}
	c := Center(h, 520)
	lo, hi := c.Extent()
	if math.Abs(lo+hi-520) > 1e-6 {
		t.Errorf("centered min+max = %v, want 520", lo+hi)
	}
	if math.Abs(c.Offset-110) > 1e-6 {
		t.Errorf("Offset = %v, want 110", c.Offset)
	}
	if h.Offset != 0 || h.Points[0].Perpendicular == c.Points[0].Perpendicular {
		t.Error("Center modified its input")
	}
	if len(Center(Hierarchy{}, 100).Points) != 0 {
		t.Error("empty hierarchy should stay empty")
	}
}

func TestParsePositions(t *testing.T) {
	out := []byte(`digraph G {
	graph [bb="0,0,54,36"];
	node [label="\N"];
	n0	[height=0.05,
		pos="3.6,18",
		width=0.05];
	n1	[pos="50.4,27", width=0.05];
	n0 -> n1	[pos="e,48.6,26.6 5.4,18.4 15,20 30,24 44,26"];
	n2	[pos="50.4,9"];
}
`)
	pos, err := parsePositions(out, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]float64{{3.6, 18}, {50.4, 27}, {50.4, 9}}
	for i := range want {
		if pos[i] != want[i] {
			t.Errorf("pos[%d] = %v, want %v", i, pos[i], want[i])
		}
	}
	if _, err := parsePositions(out, 4); err == nil {
		t.Error("expected error for missing node")
	}
}

func TestGraphvizLayout(t *testing.T) {
	box := Box{Breadth: 400, Depth: 300}
	h, err := Graphviz{}.Layout(wideTree(), box)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	for _, p := range h.Points {
		if p.Perpendicular < -eps || p.Perpendicular > box.Breadth+eps {
			t.Errorf("%s perpendicular %v outside box", p.Name, p.Perpendicular)
		}
		if p.Depth < -eps || p.Depth > box.Depth+eps {
			t.Errorf("%s depth %v outside box", p.Name, p.Depth)
		}
	}
	for _, l := range h.Links {
		if h.Points[l.Target].Depth <= h.Points[l.Source].Depth {
			t.Errorf("child %s not deeper than parent %s", h.Points[l.Target].Name, h.Points[l.Source].Name)
		}
	}
}
