package layout

// Offset returns the perpendicular shift that centers points in a viewport of
// the given extent: after shifting, min+max == extent. An empty set needs no
// shift.
func Offset(points []Point, extent float64) float64 {
	if len(points) == 0 {
		return 0
	}
	lo, hi := Hierarchy{Points: points}.Extent()
	return (extent-(hi-lo))/2 - lo
}

// ApplyOffset returns the shifted perpendicular coordinate of p.
func ApplyOffset(p Point, offset float64) float64 { return p.Perpendicular + offset }

// Center returns a copy of h whose perpendicular coordinates are centered in
// extent. The applied shift is recorded in Offset so callers that keep raw
// coordinates can translate instead.
func Center(h Hierarchy, extent float64) Hierarchy {
	offset := Offset(h.Points, extent)

	out := Hierarchy{
		Points: make([]Point, len(h.Points)),
		Links:  h.Links,
		Offset: h.Offset + offset,
	}
	for i, p := range h.Points {
		p.Perpendicular = ApplyOffset(p, offset)
		out.Points[i] = p
	}
	return out
}

// Extent returns the minimum and maximum perpendicular coordinate of h.
func (h Hierarchy) Extent() (lo, hi float64) {
	for i, p := range h.Points {
		if i == 0 {
			lo, hi = p.Perpendicular, p.Perpendicular
			continue
		}
		lo, hi = min(lo, p.Perpendicular), max(hi, p.Perpendicular)
	}
	return lo, hi
}
