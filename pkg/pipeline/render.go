package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/astview/pkg/display"
	"github.com/matzehuels/astview/pkg/layout"
	"github.com/matzehuels/astview/pkg/observability"
	"github.com/matzehuels/astview/pkg/render"
	"github.com/matzehuels/astview/pkg/render/nodelink"
)

// Document is the JSON artifact: the display tree and its centered layout.
type Document struct {
	Tree   *display.Node    `json:"tree"`
	Layout layout.Hierarchy `json:"layout"`
	Width  float64          `json:"width"`
	Height float64          `json:"height"`
	Margin render.Margin    `json:"margin"`
}

// Render generates output artifacts for a centered hierarchy in the
// requested formats. Options must already carry defaults.
func Render(ctx context.Context, tree *display.Node, h layout.Hierarchy, opts Options) (map[string][]byte, error) {
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	artifacts, err := renderFormats(ctx, tree, h, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, err
}

func renderFormats(ctx context.Context, tree *display.Node, h layout.Hierarchy, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	// PDF and PNG are converted from the SVG, so render it once.
	var svg []byte
	svgOnce := func() []byte {
		if svg == nil {
			svg = nodelink.RenderSVG(h, opts.svgOptions())
		}
		return svg
	}

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = svgOnce()
		case FormatJSON:
			data, err = json.MarshalIndent(Document{
				Tree:   tree,
				Layout: h,
				Width:  opts.Width,
				Height: opts.Height,
				Margin: opts.margin(),
			}, "", "  ")
		case FormatDOT:
			data = []byte(nodelink.ToDOT(h))
		case FormatPDF:
			data, err = render.ToPDF(ctx, svgOnce())
		case FormatPNG:
			data, err = render.ToPNG(ctx, svgOnce(), opts.Scale)
		default:
			err = fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func (o *Options) svgOptions() nodelink.Options {
	return nodelink.Options{
		Width:  o.Width,
		Height: o.Height,
		Margin: o.margin(),
		Labels: o.Labels,
		View:   o.View,
	}
}
