package geom

// AABB is an axis-aligned bounding box, the hitbox shape the host engine
// reports for every entity.
type AABB struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// AABBAround builds a box centered horizontally on base with the given width
// and extending height upward. Matches how the host derives entity hitboxes
// from a feet position.
func AABBAround(base Vec3, width, height float64) AABB {
	half := width / 2
	return AABB{
		Min: Vec3{base.X - half, base.Y, base.Z - half},
		Max: Vec3{base.X + half, base.Y + height, base.Z + half},
	}
}

// Expand returns the box grown by amount on every axis in both directions.
// A negative amount shrinks the box; no validation is done for inversion.
func (b AABB) Expand(amount float64) AABB {
	return AABB{
		Min: Vec3{b.Min.X - amount, b.Min.Y - amount, b.Min.Z - amount},
		Max: Vec3{b.Max.X + amount, b.Max.Y + amount, b.Max.Z + amount},
	}
}

// Contains reports whether p lies inside the box, boundary inclusive.
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ClosestPoint returns the point inside the box nearest to p. If p is
// inside the box, p itself is returned.
func (b AABB) ClosestPoint(p Vec3) Vec3 {
	return Vec3{
		X: clamp(p.X, b.Min.X, b.Max.X),
		Y: clamp(p.Y, b.Min.Y, b.Max.Y),
		Z: clamp(p.Z, b.Min.Z, b.Max.Z),
	}
}

// DistanceTo returns the distance from p to the surface of the box, zero
// when p is inside.
func (b AABB) DistanceTo(p Vec3) float64 {
	return b.ClosestPoint(p).Distance(p)
}

// IntersectsRay reports whether a ray from origin along dir hits the box
// within maxDist. Uses the slab method; dir need not be normalized but a
// zero component means the ray is parallel to that axis.
func (b AABB) IntersectsRay(origin, dir Vec3, maxDist float64) bool {
	d := dir.Normalize()
	if d.LengthSq() == 0 {
		return b.Contains(origin)
	}

	tMin, tMax := 0.0, maxDist
	slab := func(o, dd, lo, hi float64) bool {
		if dd == 0 {
			return o >= lo && o <= hi
		}
		t1 := (lo - o) / dd
		t2 := (hi - o) / dd
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		return tMin <= tMax
	}
	return slab(origin.X, d.X, b.Min.X, b.Max.X) &&
		slab(origin.Y, d.Y, b.Min.Y, b.Max.Y) &&
		slab(origin.Z, d.Z, b.Min.Z, b.Max.Z)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Center returns the geometric center of the box.
func (b AABB) Center() Vec3 {
	return Vec3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}
