// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package rotation is the small unit-quaternion abstraction used by the
// orientation pipeline. All Euler conversions use one fixed order:
// intrinsic Y-X-Z (yaw about Y, then pitch about X, then roll about Z),
// the same convention as a Y-up camera looking down -Z.
package rotation

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// gimbalLimit is the |sin(pitch)| above which yaw and roll can no longer be
// separated during decomposition.
const gimbalLimit = 0.9999999

// slerpLinearThreshold is the cosine above which Slerp falls back to a
// normalised linear blend.
const slerpLinearThreshold = 0.9995

// Euler holds Y-X-Z intrinsic angles in radians.
type Euler struct {
	X float64 `json:"x"` // pitch
	Y float64 `json:"y"` // yaw
	Z float64 `json:"z"` // roll
}

// Rotation is a unit quaternion. The zero value is the identity rotation.
type Rotation struct {
	q quat.Number
}

var identity = quat.Number{Real: 1}

// Identity returns the rotation that leaves every vector unchanged.
func Identity() Rotation {
	return Rotation{q: identity}
}

// FromQuat normalises q into a rotation. A zero or non-finite quaternion
// yields the identity.
func FromQuat(q quat.Number) Rotation {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Identity()
	}
	return Rotation{q: quat.Scale(1/n, q)}
}

// FromEuler composes Ry(e.Y)·Rx(e.X)·Rz(e.Z).
func FromEuler(e Euler) Rotation {
	qy := axisAngle(0, 1, 0, e.Y)
	qx := axisAngle(1, 0, 0, e.X)
	qz := axisAngle(0, 0, 1, e.Z)
	return FromQuat(quat.Mul(quat.Mul(qy, qx), qz))
}

func axisAngle(x, y, z, angle float64) quat.Number {
	s, c := math.Sincos(angle / 2)
	return quat.Number{Real: c, Imag: x * s, Jmag: y * s, Kmag: z * s}
}

// Quat returns the underlying unit quaternion.
func (r Rotation) Quat() quat.Number {
	if r.q == (quat.Number{}) {
		return identity
	}
	return r.q
}

// XYZW returns the quaternion components in x, y, z, w order.
func (r Rotation) XYZW() [4]float64 {
	q := r.Quat()
	return [4]float64{q.Imag, q.Jmag, q.Kmag, q.Real}
}

// Norm is the quaternion modulus; 1 for every value built by this package.
func (r Rotation) Norm() float64 {
	return quat.Abs(r.Quat())
}

// Inverse returns the rotation that undoes r.
func (r Rotation) Inverse() Rotation {
	return Rotation{q: quat.Conj(r.Quat())}
}

// Compose returns r ∘ other: other is applied first, then r.
func (r Rotation) Compose(other Rotation) Rotation {
	return FromQuat(quat.Mul(r.Quat(), other.Quat()))
}

// Apply rotates the vector v.
func (r Rotation) Apply(v [3]float64) [3]float64 {
	q := r.Quat()
	p := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	out := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return [3]float64{out.Imag, out.Jmag, out.Kmag}
}

// Slerp interpolates along the shortest arc from r towards to. t is
// clamped to [0, 1].
func (r Rotation) Slerp(to Rotation, t float64) Rotation {
	t = math.Max(0, math.Min(1, t))
	a, b := r.Quat(), to.Quat()

	cos := dot(a, b)
	if cos < 0 {
		b = quat.Scale(-1, b)
		cos = -cos
	}
	if cos > slerpLinearThreshold {
		return FromQuat(quat.Add(quat.Scale(1-t, a), quat.Scale(t, b)))
	}

	theta := math.Acos(cos)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return FromQuat(quat.Add(quat.Scale(wa, a), quat.Scale(wb, b)))
}

// AngleTo returns the angle in radians of the smallest rotation taking r
// onto other.
func (r Rotation) AngleTo(other Rotation) float64 {
	d := quat.Mul(quat.Conj(r.Quat()), other.Quat())
	v := math.Sqrt(d.Imag*d.Imag + d.Jmag*d.Jmag + d.Kmag*d.Kmag)
	return 2 * math.Atan2(v, math.Abs(d.Real))
}

// Euler decomposes r into Y-X-Z intrinsic angles. X is in [-π/2, π/2];
// Y and Z are in (-π, π]. At the gimbal boundary roll is folded into yaw.
func (r Rotation) Euler() Euler {
	q := r.Quat()
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	m11 := 1 - 2*(y*y+z*z)
	m13 := 2 * (x*z + w*y)
	m21 := 2 * (x*y + w*z)
	m22 := 1 - 2*(x*x+z*z)
	m23 := 2 * (y*z - w*x)
	m31 := 2 * (x*z - w*y)
	m33 := 1 - 2*(x*x+y*y)

	var e Euler
	e.X = math.Asin(-math.Max(-1, math.Min(1, m23)))
	if math.Abs(m23) < gimbalLimit {
		e.Y = math.Atan2(m13, m33)
		e.Z = math.Atan2(m21, m22)
	} else {
		e.Y = math.Atan2(-m31, m11)
	}
	return e
}

func dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

type wireQuat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// MarshalJSON encodes r as {"x","y","z","w"}.
func (r Rotation) MarshalJSON() ([]byte, error) {
	v := r.XYZW()
	return json.Marshal(wireQuat{X: v[0], Y: v[1], Z: v[2], W: v[3]})
}

// UnmarshalJSON decodes {"x","y","z","w"} and normalises the result.
func (r *Rotation) UnmarshalJSON(data []byte) error {
	var w wireQuat
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = FromQuat(quat.Number{Real: w.W, Imag: w.X, Jmag: w.Y, Kmag: w.Z})
	return nil
}
