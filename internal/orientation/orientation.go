// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation turns raw device-orientation samples into a stable,
// calibrated and smoothed camera rotation.
package orientation

import (
	"context"
	"errors"

	"github.com/relabs-tech/photosphere/internal/rotation"
)

// ErrSensorUnavailable is returned when a sample source cannot reach its
// sensor at all.
var ErrSensorUnavailable = errors.New("orientation sensor unavailable")

// Pose is the human-readable form of a camera rotation, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// PoseFromRotation decomposes r into yaw/pitch/roll. Roll is reported with
// the sensor's sign, i.e. the negation of the camera's Z angle.
func PoseFromRotation(r rotation.Rotation) Pose {
	e := r.Euler()
	return Pose{
		Roll:  rotation.Degrees(-e.Z),
		Pitch: rotation.Degrees(e.X),
		Yaw:   rotation.Degrees(e.Y),
	}
}

// Source is anything that can provide raw samples over time: mock, serial,
// IMU, MQTT, websocket or a recorded session.
//
// Next blocks until a sample is available. io.EOF marks a finite source
// that has run out.
type Source interface {
	Next(ctx context.Context) (RawSample, error)
}
