// Package pipeline runs the normalize → layout → center → render stages for
// one AST at a time.
//
// The CLI, the HTTP server and the terminal viewer all render through a
// [Runner], so a tree looks the same everywhere and shares one cache.
//
// # Stages
//
//  1. Normalize: [display.Normalize] turns the AST into a display tree
//  2. Layout: the selected [layout.Engine] positions the tree in the layout
//     box; the raw layout is cached per tree and engine
//  3. Center: [layout.Center] recomputes the perpendicular offset for the
//     viewport on every run
//  4. Render: artifacts are produced per format and cached
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, coll.At(0), pipeline.Options{
//	    Formats: []string{pipeline.FormatSVG},
//	})
//	svg := res.Artifacts[pipeline.FormatSVG]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/astview/pkg/cache"
	"github.com/matzehuels/astview/pkg/display"
	apperrors "github.com/matzehuels/astview/pkg/errors"
	"github.com/matzehuels/astview/pkg/layout"
	"github.com/matzehuels/astview/pkg/render"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultWidth is the default frame width in pixels.
	DefaultWidth = 960.0

	// DefaultHeight is the viewer's frame height in pixels.
	DefaultHeight = 600.0

	// DepthInset is subtracted from the usable width so the deepest leaves
	// keep room for their labels.
	DepthInset = 100.0

	// DefaultScale is the PNG resolution multiplier.
	DefaultScale = 2.0

	// DefaultEngine is the default layout engine.
	DefaultEngine = layout.EngineTidy
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatPDF  = "pdf"
	FormatPNG  = "png"
)

// Formats lists the supported output formats.
var Formats = []string{FormatSVG, FormatJSON, FormatDOT, FormatPDF, FormatPNG}

// ContentType returns the MIME type of an output format.
func ContentType(format string) string {
	switch format {
	case FormatSVG:
		return "image/svg+xml"
	case FormatJSON:
		return "application/json"
	case FormatDOT:
		return "text/vnd.graphviz"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// =============================================================================
// Options
// =============================================================================

// Options configures one pipeline run. Zero values take the defaults above.
type Options struct {
	Width   float64          `json:"width,omitempty"`
	Height  float64          `json:"height,omitempty"`
	Margin  *render.Margin   `json:"margin,omitempty"`
	Engine  string           `json:"engine,omitempty"`
	Formats []string         `json:"formats,omitempty"`
	Labels  bool             `json:"labels,omitempty"`
	Scale   float64          `json:"scale,omitempty"`
	View    render.Transform `json:"view"`
	Refresh bool             `json:"refresh,omitempty"` // bypass cached results

	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults applies defaults and checks every field.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Margin == nil {
		m := render.DefaultMargin
		o.Margin = &m
	}
	if o.Engine == "" {
		o.Engine = DefaultEngine
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	if err := apperrors.ValidateDimension("width", o.Width); err != nil {
		return err
	}
	if err := apperrors.ValidateDimension("height", o.Height); err != nil {
		return err
	}
	if err := apperrors.ValidateDimension("scale", o.Scale); err != nil {
		return err
	}
	box := o.Box()
	if box.Breadth <= 0 || box.Depth <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidDimension,
			"frame %vx%v leaves no room for the tree inside the margins", o.Width, o.Height)
	}
	if err := apperrors.ValidateEngine(o.Engine, layout.Names()); err != nil {
		return err
	}
	return apperrors.ValidateFormats(o.Formats, Formats)
}

// Box returns the area the layout engine fills: the frame minus margins,
// with DepthInset reserved along the depth axis.
func (o *Options) Box() layout.Box {
	m := o.margin()
	return layout.Box{
		Breadth: o.Height - m.Top - m.Bottom,
		Depth:   o.Width - m.Left - m.Right - DepthInset,
	}
}

// Extent is the perpendicular viewport extent used for centering.
func (o *Options) Extent() float64 { return o.Box().Breadth }

func (o *Options) margin() render.Margin {
	if o.Margin == nil {
		return render.DefaultMargin
	}
	return *o.Margin
}

// LayoutKeyOpts returns cache key options for the raw layout.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	box := o.Box()
	return cache.LayoutKeyOpts{Engine: o.Engine, Breadth: box.Breadth, Depth: box.Depth}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	m := o.margin()
	view := o.View
	if view.K == 0 {
		view.K = 1
	}
	k := cache.ArtifactKeyOpts{
		Format: format,
		Width:  o.Width,
		Height: o.Height,
		Margin: [4]float64{m.Top, m.Right, m.Bottom, m.Left},
		Labels: o.Labels,
		View:   [3]float64{view.X, view.Y, view.K},
	}
	if format == FormatPNG {
		k.Scale = o.Scale
	}
	return k
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	Tree      *display.Node
	TreeHash  string
	Layout    layout.Hierarchy // centered
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount     int
	Height        int
	NormalizeTime time.Duration
	LayoutTime    time.Duration
	RenderTime    time.Duration
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool // all artifacts came from cache
}
