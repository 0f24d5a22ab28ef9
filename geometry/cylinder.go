package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Cylinder is a finite cylinder between the cap centers X1 and X2
type Cylinder struct {
	X1     mgl64.Vec3
	X2     mgl64.Vec3
	Radius float64
}

func NewCylinder(x1, x2 mgl64.Vec3, radius float64) *Cylinder {
	return &Cylinder{X1: x1, X2: x2, Radius: radius}
}

func (c *Cylinder) Type() ObjectType {
	return ObjectTypeCylinder
}

func (c *Cylinder) IsConvex() bool {
	return true
}

func (c *Cylinder) Height() float64 {
	return c.X2.Sub(c.X1).Len()
}

// Axis returns the unit axis from X1 to X2 (Z when degenerate)
func (c *Cylinder) Axis() mgl64.Vec3 {
	axis := c.X2.Sub(c.X1)
	if axis.Len() < Epsilon {
		return mgl64.Vec3{0, 0, 1}
	}

	return axis.Normalize()
}

// decompose splits x into the axial coordinate from X1 and the radial offset
func (c *Cylinder) decompose(x mgl64.Vec3) (h float64, r float64, radialDir mgl64.Vec3) {
	axis := c.Axis()
	offset := x.Sub(c.X1)
	h = offset.Dot(axis)
	radial := offset.Sub(axis.Mul(h))
	r = radial.Len()
	if r > Epsilon*Epsilon {
		radialDir = radial.Mul(1 / r)
	} else {
		radialDir = orthonormal(axis)
	}

	return h, r, radialDir
}

// PhiWithNormal uses the two cap planes to classify x:
// outside a cap plane it measures to the cap disc (or its ring), between
// the planes it measures to the side unless a cap is closer from inside.
func (c *Cylinder) PhiWithNormal(x mgl64.Vec3) (float64, mgl64.Vec3) {
	axis := c.Axis()
	height := c.Height()
	h, r, radialDir := c.decompose(x)

	if h < 0 {
		if r > c.Radius {
			corner := c.X1.Add(radialDir.Mul(c.Radius))
			delta := x.Sub(corner)
			length := delta.Len()
			return length, delta.Mul(1 / length)
		}
		return -h, axis.Mul(-1)
	}
	if h > height {
		if r > c.Radius {
			corner := c.X2.Add(radialDir.Mul(c.Radius))
			delta := x.Sub(corner)
			length := delta.Len()
			return length, delta.Mul(1 / length)
		}
		return h - height, axis
	}

	side := r - c.Radius
	if side > 0 {
		return side, radialDir
	}

	capDistance := math.Min(h, height-h)
	if capDistance < -side {
		if h < height-h {
			return -capDistance, axis.Mul(-1)
		}
		return -capDistance, axis
	}

	return side, radialDir
}

func (c *Cylinder) BoundingBox() AABB {
	axis := c.Axis()
	// extent of a disc of radius R perpendicular to axis, per world axis
	var e mgl64.Vec3
	for i := 0; i < 3; i++ {
		e[i] = c.Radius * math.Sqrt(math.Max(0, 1-axis[i]*axis[i]))
	}

	box := EmptyAABB()
	box = box.GrowToInclude(c.X1.Sub(e)).GrowToInclude(c.X1.Add(e))
	box = box.GrowToInclude(c.X2.Sub(e)).GrowToInclude(c.X2.Add(e))

	return box
}

func (c *Cylinder) Support(direction mgl64.Vec3) mgl64.Vec3 {
	axis := c.Axis()
	base := c.X1
	if direction.Dot(axis) > 0 {
		base = c.X2
	}

	radial := direction.Sub(axis.Mul(direction.Dot(axis)))
	if length := radial.Len(); length > 1e-12 {
		base = base.Add(radial.Mul(c.Radius / length))
	}

	return base
}

// FindClosestIntersection intersects the side (radius inflated by thickness) and both caps
// (pushed out by thickness), then refines near the rim.
func (c *Cylinder) FindClosestIntersection(start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool) {
	if startInside(c, start, thickness) {
		return start, true
	}

	axis := c.Axis()
	height := c.Height()
	radius := c.Radius + thickness
	ray := end.Sub(start)

	best := math.MaxFloat64
	consider := func(t float64) {
		if t < 0 || t > 1 || t >= best {
			return
		}
		h, r, _ := c.decompose(start.Add(ray.Mul(t)))
		if h < -thickness-Epsilon || h > height+thickness+Epsilon || r > radius+Epsilon {
			return
		}
		best = t
	}

	// side: |(p - X1) - axis*((p - X1)·axis)|² = radius²
	offset := start.Sub(c.X1)
	rayPerp := ray.Sub(axis.Mul(ray.Dot(axis)))
	offsetPerp := offset.Sub(axis.Mul(offset.Dot(axis)))
	a := rayPerp.LenSqr()
	b := 2 * rayPerp.Dot(offsetPerp)
	cc := offsetPerp.LenSqr() - radius*radius
	if a > 1e-12 {
		if disc := b*b - 4*a*cc; disc >= 0 {
			sq := math.Sqrt(disc)
			consider((-b - sq) / (2 * a))
			consider((-b + sq) / (2 * a))
		}
	}

	// caps
	if denom := ray.Dot(axis); math.Abs(denom) > 1e-12 {
		consider((-thickness - offset.Dot(axis)) / denom)
		consider((height + thickness - offset.Dot(axis)) / denom)
	}

	if best == math.MaxFloat64 {
		return mgl64.Vec3{}, false
	}

	hit := start.Add(ray.Mul(best))
	if SignedDistance(c, hit) <= thickness+Epsilon {
		return hit, true
	}

	return sphereTrace(c, hit, end, thickness)
}
