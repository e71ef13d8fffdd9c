package system

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const epsilon = 1e-9

// safeNormal returns v normalized, or the zero vector when v has no length.
func safeNormal(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < epsilon {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// clampLen limits the length of v to max.
func clampLen(v mgl64.Vec3, max float64) mgl64.Vec3 {
	l := v.Len()
	if l <= max || l < epsilon {
		return v
	}
	return v.Mul(max / l)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// facing returns the rotation that turns +X onto dir.
func facing(dir mgl64.Vec3) mgl64.Quat {
	n := safeNormal(dir)
	if n == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatBetweenVectors(mgl64.Vec3{1, 0, 0}, n)
}

// segmentSphere returns the first parameter t in [0,1] at which the segment
// a→b comes within radius of c.
func segmentSphere(a, b, c mgl64.Vec3, radius float64) (float64, bool) {
	d := b.Sub(a)
	f := a.Sub(c)
	aa := d.Dot(d)
	cc := f.Dot(f) - radius*radius
	if cc <= 0 {
		return 0, true // starts inside
	}
	if aa < epsilon {
		return 0, false
	}
	bb := 2 * f.Dot(d)
	disc := bb*bb - 4*aa*cc
	if disc < 0 {
		return 0, false
	}
	t := (-bb - math.Sqrt(disc)) / (2 * aa)
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}
