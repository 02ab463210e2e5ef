package render

import (
	"fmt"
	"strings"
)

// Zoom limits for [Transform.Zoom].
const (
	MinScale = 0.1
	MaxScale = 4.0
)

// Margin is the space between the frame edge and the tree.
type Margin struct {
	Top    float64 `json:"top" toml:"top"`
	Right  float64 `json:"right" toml:"right"`
	Bottom float64 `json:"bottom" toml:"bottom"`
	Left   float64 `json:"left" toml:"left"`
}

// DefaultMargin is the viewer's frame margin.
var DefaultMargin = Margin{Top: 60, Right: 120, Bottom: 20, Left: 120}

// Transform is a pan/zoom state: translate by (X, Y), then scale by K.
type Transform struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
	K float64 `json:"k" bson:"k"`
}

// Identity is the transform every new frame starts with.
var Identity = Transform{K: 1}

// IsIdentity reports whether t leaves coordinates unchanged. The zero value
// counts as identity.
func (t Transform) IsIdentity() bool {
	return t.X == 0 && t.Y == 0 && (t.K == 1 || t.K == 0)
}

// Pan returns t translated by (dx, dy).
func (t Transform) Pan(dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t.normalized()
}

// Zoom returns t with its scale multiplied by factor and clamped to
// [MinScale, MaxScale].
func (t Transform) Zoom(factor float64) Transform {
	t = t.normalized()
	t.K = ClampScale(t.K * factor)
	return t
}

// ClampScale limits k to [MinScale, MaxScale].
func ClampScale(k float64) float64 {
	return min(max(k, MinScale), MaxScale)
}

// SVG returns the transform attribute value.
func (t Transform) SVG() string {
	t = t.normalized()
	return fmt.Sprintf("translate(%s,%s) scale(%s)", Num(t.X), Num(t.Y), Num(t.K))
}

func (t Transform) normalized() Transform {
	if t.K == 0 {
		t.K = 1
	}
	return t
}

// Num formats a coordinate with at most two decimals and no trailing zeros.
func Num(v float64) string {
	s := strings.TrimRight(fmt.Sprintf("%.2f", v), "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
