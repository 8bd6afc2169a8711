package geom

import "math"

type Vec2 struct{ X, Y float64 }

func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Len() float64    { return math.Hypot(a.X, a.Y) }
func (a Vec2) Norm() Vec2 {
	l := a.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{a.X / l, a.Y / l}
}
func (a Vec2) Scale(s float64) Vec2 { return Vec2{a.X * s, a.Y * s} }

// Div divides component-wise; zero divisors leave the component unchanged.
func (a Vec2) Div(b Vec2) Vec2 {
	out := a
	if b.X != 0 {
		out.X = a.X / b.X
	}
	if b.Y != 0 {
		out.Y = a.Y / b.Y
	}
	return out
}

func (a Vec2) Dist(b Vec2) float64 { return a.Sub(b).Len() }

// ClampLen caps the magnitude of a at max, keeping its direction.
func (a Vec2) ClampLen(max float64) Vec2 {
	l := a.Len()
	if l > max && l > 0 {
		return a.Scale(max / l)
	}
	return a
}

// Rect is an axis-aligned bounding box.
type Rect struct{ Min, Max Vec2 }

func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

func (r Rect) Clamp(p Vec2) Vec2 {
	return Vec2{X: math.Min(math.Max(p.X, r.Min.X), r.Max.X), Y: math.Min(math.Max(p.Y, r.Min.Y), r.Max.Y)}
}

// 地图像素坐标与笛卡尔坐标之间的固定仿射变换。
const (
	PixelScale   = 0.42871
	PixelOffsetX = 145.0
	PixelOffsetY = 115.0
)

func PixelToCartesian(p Vec2) Vec2 {
	return Vec2{X: (p.X - PixelOffsetX) * PixelScale, Y: (p.Y - PixelOffsetY) * PixelScale}
}

func CartesianToPixel(p Vec2) Vec2 {
	return Vec2{X: p.X/PixelScale + PixelOffsetX, Y: p.Y/PixelScale + PixelOffsetY}
}
