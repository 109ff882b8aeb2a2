package vecmath

import "math"

// Rect is an axis-aligned rectangle in track space.
type Rect struct {
	MinX float64 `json:"min_x" mapstructure:"minX"`
	MinY float64 `json:"min_y" mapstructure:"minY"`
	MaxX float64 `json:"max_x" mapstructure:"maxX"`
	MaxY float64 `json:"max_y" mapstructure:"maxY"`
}

// RectAround builds a rect centred on c with the given half extents.
func RectAround(c Vector2D, halfW, halfH float64) Rect {
	return Rect{MinX: c.X - halfW, MinY: c.Y - halfH, MaxX: c.X + halfW, MaxY: c.Y + halfH}
}

// Intersects reports a strictly positive-area overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX < o.MaxX && r.MaxX > o.MinX && r.MinY < o.MaxY && r.MaxY > o.MinY
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Vector2D) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

func (r Rect) Center() Vector2D {
	return Vector2D{X: (r.MinX + r.MaxX) * 0.5, Y: (r.MinY + r.MaxY) * 0.5}
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Valid reports whether r has positive area.
func (r Rect) Valid() bool {
	return r.MaxX > r.MinX && r.MaxY > r.MinY
}

// Overlap returns the minimum translation that moves r out of o. The second
// result is false when the rects do not intersect. Ties on the push axis
// resolve along x, and an exactly shared centre pushes towards +x/+y.
func (r Rect) Overlap(o Rect) (Vector2D, bool) {
	if !r.Intersects(o) {
		return Vector2D{}, false
	}
	dx := math.Min(r.MaxX, o.MaxX) - math.Max(r.MinX, o.MinX)
	dy := math.Min(r.MaxY, o.MaxY) - math.Max(r.MinY, o.MinY)
	rc, oc := r.Center(), o.Center()
	if dx <= dy {
		if rc.X < oc.X {
			return Vector2D{X: -dx}, true
		}
		return Vector2D{X: dx}, true
	}
	if rc.Y < oc.Y {
		return Vector2D{Y: -dy}, true
	}
	return Vector2D{Y: dy}, true
}
