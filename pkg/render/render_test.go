package render

import (
	"context"
	"testing"
)

func TestNum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{120, "120"},
		{40.5, "40.5"},
		{1.256, "1.26"},
		{-0.001, "0"},
		{-12.1, "-12.1"},
	}
	for _, tt := range tests {
		if got := Num(tt.in); got != tt.want {
			t.Errorf("Num(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTransform(t *testing.T) {
	if !Identity.IsIdentity() || !(Transform{}).IsIdentity() {
		t.Error("identity not recognised")
	}
	if got := (Transform{}).SVG(); got != "translate(0,0) scale(1)" {
		t.Errorf("zero SVG = %q", got)
	}

	tr := Identity.Zoom(100)
	if tr.K != MaxScale {
		t.Errorf("zoom in clamped to %v, want %v", tr.K, MaxScale)
	}
	tr = tr.Zoom(0.0001)
	if tr.K != MinScale {
		t.Errorf("zoom out clamped to %v, want %v", tr.K, MinScale)
	}
	tr = Identity.Pan(3, 4).Pan(-1, 1)
	if tr.X != 2 || tr.Y != 5 || tr.K != 1 {
		t.Errorf("pan = %+v", tr)
	}
	if tr.IsIdentity() {
		t.Error("panned transform reported as identity")
	}
}

func TestConvertWithoutRsvg(t *testing.T) {
	if ConverterAvailable() {
		t.Skip("rsvg-convert installed")
	}
	if _, err := ToPDF(context.Background(), []byte("<svg/>")); err == nil {
		t.Error("ToPDF without rsvg-convert should fail")
	}
}
