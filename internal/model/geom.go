package model

import (
	"fmt"
	"math"
	"strings"
)

type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// ParseAxis accepts "x", "y" or "z" in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// plane returns the two axes spanning the plane perpendicular to a, in
// right-handed order.
func (a Axis) plane() (Axis, Axis) {
	switch a {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisZ, AxisX
	default:
		return AxisX, AxisY
	}
}

type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func V(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

func (v Vec3) Get(a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

func (v Vec3) With(a Axis, f float64) Vec3 {
	switch a {
	case AxisX:
		v.X = f
	case AxisY:
		v.Y = f
	default:
		v.Z = f
	}
	return v
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g %g %g)", v.X, v.Y, v.Z)
}

// Rotate90 rotates p by a quarter turn about the line through center
// parallel to axis.
func (v Vec3) Rotate90(axis Axis, center Vec3, clockwise bool) Vec3 {
	u, w := axis.plane()
	du := v.Get(u) - center.Get(u)
	dw := v.Get(w) - center.Get(w)
	if clockwise {
		du, dw = dw, -du
	} else {
		du, dw = -dw, du
	}
	return v.With(u, center.Get(u)+du).With(w, center.Get(w)+dw)
}

// BBox is an axis-aligned box. Min <= Max on every axis for boxes built with
// NewBBox.
type BBox struct {
	Min Vec3 `json:"min" yaml:"min"`
	Max Vec3 `json:"max" yaml:"max"`
}

func NewBBox(a, b Vec3) BBox {
	return BBox{
		Min: Vec3{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)},
		Max: Vec3{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)},
	}
}

// CubeAround returns a box of the given half size centered at c.
func CubeAround(c Vec3, half float64) BBox {
	h := Vec3{X: half, Y: half, Z: half}
	return BBox{Min: c.Sub(h), Max: c.Add(h)}
}

func (b BBox) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

func (b BBox) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Degenerate reports whether the box has no volume.
func (b BBox) Degenerate() bool {
	s := b.Size()
	return !(s.X > 0 && s.Y > 0 && s.Z > 0)
}

func (b BBox) Contains(o BBox) bool {
	return o.Min.X >= b.Min.X && o.Min.Y >= b.Min.Y && o.Min.Z >= b.Min.Z &&
		o.Max.X <= b.Max.X && o.Max.Y <= b.Max.Y && o.Max.Z <= b.Max.Z
}

// Intersects reports whether the boxes overlap or share a face, edge or
// corner.
func (b BBox) Intersects(o BBox) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y &&
		b.Min.Z <= o.Max.Z && o.Min.Z <= b.Max.Z
}

func (b BBox) Merge(o BBox) BBox {
	return NewBBox(
		Vec3{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y), Z: math.Min(b.Min.Z, o.Min.Z)},
		Vec3{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y), Z: math.Max(b.Max.Z, o.Max.Z)},
	)
}

func (b BBox) Translate(d Vec3) BBox {
	return BBox{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

// Flip mirrors the box at the plane through center perpendicular to axis.
func (b BBox) Flip(axis Axis, center Vec3) BBox {
	c := center.Get(axis)
	lo := 2*c - b.Max.Get(axis)
	hi := 2*c - b.Min.Get(axis)
	return BBox{Min: b.Min.With(axis, lo), Max: b.Max.With(axis, hi)}
}

func (b BBox) Rotate90(axis Axis, center Vec3, clockwise bool) BBox {
	return NewBBox(b.Min.Rotate90(axis, center, clockwise), b.Max.Rotate90(axis, center, clockwise))
}

func (b BBox) String() string {
	return fmt.Sprintf("[%v %v]", b.Min, b.Max)
}
