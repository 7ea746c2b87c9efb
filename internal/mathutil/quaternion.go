package mathutil

import "math"

// Quat represents a quaternion (x, y, z, w).
type Quat [4]float64

// QuatIdentity is the rotation that does nothing.
func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

// EulerToQuat converts Euler XYZ (radians) to a quaternion.
// The rotation is composed yaw-pitch-roll: Rz(rz) · Ry(ry) · Rx(rx).
func EulerToQuat(rx, ry, rz float64) Quat {
	cx, sx := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cy, sy := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cz, sz := math.Cos(rz*0.5), math.Sin(rz*0.5)

	return Quat{
		sx*cy*cz - cx*sy*sz, // x
		cx*sy*cz + sx*cy*sz, // y
		cx*cy*sz - sx*sy*cz, // z
		cx*cy*cz + sx*sy*sz, // w
	}
}

func (q Quat) Len() float64 {
	return math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}

// Normalize returns q scaled to unit length. A degenerate quaternion
// becomes the identity rotation.
func (q Quat) Normalize() Quat {
	l := q.Len()
	if l < 1e-12 || math.IsNaN(l) || math.IsInf(l, 0) {
		return QuatIdentity()
	}
	return Quat{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// QuatMul returns the Hamilton product a × b (apply b, then a).
func QuatMul(a, b Quat) Quat {
	return Quat{
		a[3]*b[0] + a[0]*b[3] + a[1]*b[2] - a[2]*b[1],
		a[3]*b[1] - a[0]*b[2] + a[1]*b[3] + a[2]*b[0],
		a[3]*b[2] + a[0]*b[1] - a[1]*b[0] + a[2]*b[3],
		a[3]*b[3] - a[0]*b[0] - a[1]*b[1] - a[2]*b[2],
	}
}

// QuatToMat3 converts a quaternion to a 3×3 rotation matrix.
func QuatToMat3(q Quat) Mat3 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat3{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy),
	}
}
