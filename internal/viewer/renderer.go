// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package viewer

import (
	"fmt"
	"sync/atomic"

	"github.com/relabs-tech/photosphere/internal/rotation"
)

// Sink receives rendered frames: a websocket, an MQTT topic, a log.
type Sink interface {
	Draw(Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame) error

func (f SinkFunc) Draw(fr Frame) error { return f(fr) }

// Renderer drives a Camera from stabilized rotations and hands each frame
// to a Sink.
type Renderer struct {
	camera *Camera
	sink   Sink
	last   atomic.Pointer[Frame]
}

// NewRenderer draws to sink. A nil sink only keeps the last frame.
func NewRenderer(camera *Camera, sink Sink) *Renderer {
	return &Renderer{camera: camera, sink: sink}
}

// Render applies r to the camera and draws the resulting frame.
func (r *Renderer) Render(rot rotation.Rotation) error {
	r.camera.SetRotation(rot)
	frame := r.camera.Frame()
	r.last.Store(&frame)
	if r.sink == nil {
		return nil
	}
	if err := r.sink.Draw(frame); err != nil {
		return fmt.Errorf("viewer: draw frame %d: %w", frame.Seq, err)
	}
	return nil
}

// Resize forwards to the camera projection.
func (r *Renderer) Resize(width, height int) error {
	return r.camera.Resize(width, height)
}

// LastFrame returns the most recently drawn frame, if any.
func (r *Renderer) LastFrame() (Frame, bool) {
	if f := r.last.Load(); f != nil {
		return *f, true
	}
	return Frame{}, false
}

// Camera returns the underlying camera.
func (r *Renderer) Camera() *Camera { return r.camera }
