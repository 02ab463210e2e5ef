package nodelink

import (
	"context"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/matzehuels/astview/pkg/display"
	"github.com/matzehuels/astview/pkg/layout"
	"github.com/matzehuels/astview/pkg/render"
)

func sampleHierarchy(t *testing.T) layout.Hierarchy {
	t.Helper()
	root := &display.Node{Name: "Block", Children: []*display.Node{
		{Name: "body [2]", Children: []*display.Node{{Name: "Expr"}, {Name: "a<b"}}},
		{Name: "x: 1"},
	}}
	h, err := layout.Tidy{}.Layout(root, layout.Box{Breadth: 520, Depth: 740})
	if err != nil {
		t.Fatal(err)
	}
	return layout.Center(h, 520)
}

func TestRenderSVG(t *testing.T) {
	h := sampleHierarchy(t)
	svg := string(RenderSVG(h, Options{Width: 960, Height: 600, Margin: render.DefaultMargin}))

	if err := xml.Unmarshal([]byte(svg), new(struct{})); err != nil {
		t.Fatalf("invalid XML: %v\n%s", err, svg)
	}
	if got := strings.Count(svg, "<circle"); got != len(h.Points) {
		t.Errorf("circles = %d, want %d", got, len(h.Points))
	}
	if got := strings.Count(svg, `class="link"`); got != len(h.Links) {
		t.Errorf("links = %d, want %d", got, len(h.Links))
	}
	for _, want := range []string{
		`width="960" height="600"`,
		`<g class="zoom" transform="translate(0,0) scale(1)">`,
		`<g transform="translate(120,60)">`,
		`r="4"`,
		`node--internal`,
		`node--leaf`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Contains(svg, "<text") {
		t.Error("labels rendered without Labels option")
	}
}

func TestRenderSVGLabelsAndView(t *testing.T) {
	h := sampleHierarchy(t)
	view := render.Identity.Pan(10, -5).Zoom(2)
	svg := string(RenderSVG(h, Options{Width: 960, Height: 600, Labels: true, View: view, Radius: 6}))

	for _, want := range []string{
		`transform="translate(10,-5) scale(2)"`,
		`r="6"`,
		`text-anchor="end">Block</text>`,
		`text-anchor="start">Expr</text>`,
		`a&lt;b`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
}

func TestLinkPath(t *testing.T) {
	from := layout.Point{Depth: 0, Perpendicular: 100}
	to := layout.Point{Depth: 180, Perpendicular: 40.5}
	want := "M0,100C90,100 90,40.5 180,40.5"
	if got := LinkPath(from, to); got != want {
		t.Errorf("LinkPath = %q, want %q", got, want)
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleHierarchy(t))
	for _, want := range []string{
		"rankdir=LR",
		`n0 [label="Block"];`,
		`n2 [label="Expr", fillcolor="#f4f4f4"];`,
		"n0 -> n1;",
		"n1 -> n3;",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
}

func TestRenderDOTSVG(t *testing.T) {
	svg, err := RenderDOTSVG(context.Background(), ToDOT(sampleHierarchy(t)))
	if err != nil {
		t.Fatalf("RenderDOTSVG: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(svg)), "<") || !strings.Contains(string(svg), `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `) {
		t.Errorf("unexpected SVG header:\n%.300s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50" width="100" height="50"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox =\n%s\nwant\n%s", got, want)
	}
	if out := normalizeViewBox([]byte("<svg/>")); string(out) != "<svg/>" {
		t.Errorf("no viewBox changed input: %s", out)
	}
}
