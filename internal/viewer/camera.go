// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package viewer is the rendering collaborator: a perspective camera
// sitting at the centre of the photo sphere, looking down -Z with +Y up.
package viewer

import (
	"fmt"
	"math"
	"sync"

	"github.com/EngoEngine/glm"

	"github.com/relabs-tech/photosphere/internal/orientation"
	"github.com/relabs-tech/photosphere/internal/rotation"
)

const (
	// DefaultFOV is the vertical field of view in degrees.
	DefaultFOV = 75.0

	nearPlane = 0.1
	farPlane  = 1000
)

// Frame is everything a renderer needs to draw one view of the sphere.
type Frame struct {
	Seq        uint64            `json:"seq"`
	Quaternion rotation.Rotation `json:"quaternion"`
	Pose       orientation.Pose  `json:"pose"`
	Forward    [3]float32        `json:"forward"`
	Up         [3]float32        `json:"up"`
	View       [16]float32       `json:"view"`
	Projection [16]float32       `json:"projection"`
	Aspect     float32           `json:"aspect"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
}

// Camera holds the current rotation and viewport. Safe for concurrent use.
type Camera struct {
	mu     sync.Mutex
	width  int
	height int
	fov    float64
	rot    rotation.Rotation
	seq    uint64
}

// NewCamera returns a camera at the identity rotation.
func NewCamera(width, height int, fovDeg float64) (*Camera, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("viewport must be positive, got %dx%d", width, height)
	}
	if fovDeg <= 0 || fovDeg >= 180 {
		return nil, fmt.Errorf("field of view must be in (0, 180) degrees, got %v", fovDeg)
	}
	return &Camera{width: width, height: height, fov: fovDeg, rot: rotation.Identity()}, nil
}

// SetRotation replaces the camera rotation.
func (c *Camera) SetRotation(r rotation.Rotation) {
	c.mu.Lock()
	c.rot = r
	c.seq++
	c.mu.Unlock()
}

// Resize changes the viewport. Only the projection is affected.
func (c *Camera) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", width, height)
	}
	c.mu.Lock()
	c.width, c.height = width, height
	c.mu.Unlock()
	return nil
}

// Frame snapshots the camera.
func (c *Camera) Frame() Frame {
	c.mu.Lock()
	rot, seq, w, h, fov := c.rot, c.seq, c.width, c.height, c.fov
	c.mu.Unlock()

	q := toGLM(rot)
	forward := q.Rotate(&glm.Vec3{0, 0, -1})
	up := q.Rotate(&glm.Vec3{0, 1, 0})
	eye := glm.Vec3{0, 0, 0}
	aspect := float32(w) / float32(h)

	return Frame{
		Seq:        seq,
		Quaternion: rot,
		Pose:       orientation.PoseFromRotation(rot),
		Forward:    forward,
		Up:         up,
		View:       glm.LookAtV(&eye, &forward, &up),
		Projection: glm.Perspective(float32(fov*math.Pi/180), aspect, nearPlane, farPlane),
		Aspect:     aspect,
		Width:      w,
		Height:     h,
	}
}

func toGLM(r rotation.Rotation) glm.Quat {
	v := r.XYZW()
	return glm.Quat{
		W: float32(v[3]),
		V: glm.Vec3{float32(v[0]), float32(v[1]), float32(v[2])},
	}
}
