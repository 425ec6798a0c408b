// Package geom provides the small amount of vector math the detection
// heuristics need: 3D vectors, axis-aligned boxes and view angles.
package geom

import "math"

// Vec3 is a point or direction in world space. Coordinates are in blocks.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Length returns the euclidean length of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// LengthSq returns the squared length of v. Cheaper than Length when only
// comparing against a squared threshold.
func (v Vec3) LengthSq() float64 {
	return v.Dot(v)
}

// Distance returns the euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	return v.Sub(o).Length()
}

// HorizontalDistanceSq returns the squared distance between v and o ignoring
// the vertical axis. Movement speed checks compare horizontal displacement
// only, since falling is legal at any speed.
func (v Vec3) HorizontalDistanceSq(o Vec3) float64 {
	dx := v.X - o.X
	dz := v.Z - o.Z
	return dx*dx + dz*dz
}

// Normalize returns the unit vector pointing in the direction of v.
// The zero vector normalizes to itself.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// AngleDegrees returns the angle in degrees between two direction vectors.
// Neither input needs to be normalized. The dot product is clamped to
// [-1, 1] before the arccosine so float error near parallel vectors cannot
// produce NaN.
func AngleDegrees(a, b Vec3) float64 {
	an := a.Normalize()
	bn := b.Normalize()
	d := an.Dot(bn)
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d) * 180 / math.Pi
}

// ViewAngle returns the angle in degrees between a look direction and the
// direction from eye to target. This is the core measurement behind every
// aim-based check: 0 means looking exactly at the target, 180 means looking
// exactly away from it.
func ViewAngle(eye, look, target Vec3) float64 {
	return AngleDegrees(look, target.Sub(eye))
}
