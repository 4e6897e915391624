package armap

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Quat is a unit rotation quaternion (x, y, z, w).
type Quat struct {
	X, Y, Z, W float32
}

// IdentityQuat is the no-op rotation.
var IdentityQuat = Quat{W: 1}

// worldUp is the axis plane proxies are built around.
var worldUp = r3.Vec{Y: 1}

// UpToNormal returns the shortest-arc rotation taking +Y onto normal.
// A zero normal yields the identity; an exactly downward normal yields a
// half turn about X.
func UpToNormal(normal Vec3) Quat {
	n := normal.r3()
	if r3.Norm(n) == 0 {
		return IdentityQuat
	}
	n = r3.Unit(n)

	d := r3.Dot(worldUp, n)
	const eps = 1e-6
	switch {
	case d > 1-eps:
		return IdentityQuat
	case d < -1+eps:
		return Quat{X: 1}
	}

	axis := r3.Unit(r3.Cross(worldUp, n))
	rot := r3.NewRotation(math.Acos(d), axis)
	return Quat{
		X: float32(rot.Imag),
		Y: float32(rot.Jmag),
		Z: float32(rot.Kmag),
		W: float32(rot.Real),
	}
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	rot := r3.Rotation{
		Real: float64(q.W),
		Imag: float64(q.X),
		Jmag: float64(q.Y),
		Kmag: float64(q.Z),
	}
	return vec3From(rot.Rotate(v.r3()))
}
