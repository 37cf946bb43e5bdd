// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/photosphere/internal/rotation"
)

const (
	// DefaultSmoothingFactor is the slerp step applied per sample.
	DefaultSmoothingFactor = 0.1
	// DefaultPitchMargin keeps the camera this many radians away from
	// looking straight up or down.
	DefaultPitchMargin = 0.3
)

// Config tunes the stabilizer.
type Config struct {
	// SmoothingFactor is the slerp fraction in (0, 1] moved towards each
	// new target. 1 disables smoothing.
	SmoothingFactor float64
	// PitchClamp bounds |pitch| of every output rotation, in radians,
	// strictly inside (0, π/2).
	PitchClamp float64
}

// DefaultConfig returns a smoothing factor of 0.1 and a pitch clamp of
// π/2 - 0.3.
func DefaultConfig() Config {
	return Config{
		SmoothingFactor: DefaultSmoothingFactor,
		PitchClamp:      math.Pi/2 - DefaultPitchMargin,
	}
}

// Validate checks both fields are in range.
func (c Config) Validate() error {
	if !(c.SmoothingFactor > 0 && c.SmoothingFactor <= 1) {
		return fmt.Errorf("smoothing factor must be in (0, 1], got %v", c.SmoothingFactor)
	}
	if !(c.PitchClamp > 0 && c.PitchClamp < math.Pi/2) {
		return fmt.Errorf("pitch clamp must be in (0, π/2) radians, got %v", c.PitchClamp)
	}
	return nil
}

// Stabilizer converts raw samples into a calibrated, clamped and smoothed
// camera rotation. Update is called from the sensor side; Latest may be
// called concurrently from the render side.
type Stabilizer struct {
	mode Mode
	cfg  Config

	mu         sync.Mutex
	calibrated bool
	refSample  RawSample
	reference  rotation.Rotation
	smoothed   rotation.Rotation

	latest atomic.Pointer[rotation.Rotation]
}

// NewStabilizer returns an uncalibrated stabilizer whose output starts at
// the identity rotation.
func NewStabilizer(mode Mode, cfg Config) (*Stabilizer, error) {
	if mode != Portrait && mode != Landscape {
		return nil, fmt.Errorf("invalid orientation mode %d", int(mode))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Stabilizer{
		mode:     mode,
		cfg:      cfg,
		smoothed: rotation.Identity(),
	}
	s.publish(s.smoothed)
	return s, nil
}

func (s *Stabilizer) Mode() Mode     { return s.mode }
func (s *Stabilizer) Config() Config { return s.cfg }

// Calibrated reports whether the first sample has been seen.
func (s *Stabilizer) Calibrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calibrated
}

// Reference returns the calibration sample and its rotation. ok is false
// until the first Update.
func (s *Stabilizer) Reference() (sample RawSample, ref rotation.Rotation, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refSample, s.reference, s.calibrated
}

// Latest returns the most recent output rotation without blocking Update.
func (s *Stabilizer) Latest() rotation.Rotation {
	if r := s.latest.Load(); r != nil {
		return *r
	}
	return rotation.Identity()
}

// Update feeds one sample and returns the new smoothed rotation. The very
// first sample becomes the calibration reference for the rest of the
// stabilizer's life.
func (s *Stabilizer) Update(sample RawSample) rotation.Rotation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.calibrated {
		s.refSample = sample
		s.reference = sampleRotation(sample)
		s.calibrated = true
	}

	target := s.target(sample)
	next := s.smoothed.Slerp(target, s.cfg.SmoothingFactor)
	s.smoothed = clampPitch(next, s.cfg.PitchClamp)
	s.publish(s.smoothed)
	return s.smoothed
}

func (s *Stabilizer) publish(r rotation.Rotation) {
	s.latest.Store(&r)
}

// target computes the unsmoothed camera rotation for sample. Callers hold
// s.mu and the stabilizer is calibrated.
func (s *Stabilizer) target(sample RawSample) rotation.Rotation {
	relative := s.reference.Inverse().Compose(sampleRotation(sample))
	d := relative.Euler()
	alphaD, betaD, gammaD := d.Y, d.X, d.Z

	// Past vertical the decomposition lands on its other branch (beta
	// folded back, alpha and gamma turned by π). Switch back so the angles
	// keep moving continuously. For portrait this is pitch := π - pitch,
	// yaw := yaw + π.
	if folded(d) {
		betaD = math.Pi - betaD
		alphaD += math.Pi
		gammaD += math.Pi
	}

	var yaw, pitch, roll float64
	switch s.mode {
	case Landscape:
		yaw, pitch, roll = alphaD, -gammaD, betaD
	default:
		yaw, pitch, roll = alphaD, -betaD, gammaD
	}

	yaw = rotation.WrapAngle(yaw)
	roll = rotation.WrapAngle(roll)
	pitch = clamp(rotation.WrapAngle(pitch), s.cfg.PitchClamp)

	return rotation.FromEuler(rotation.Euler{X: pitch, Y: yaw, Z: -roll})
}

// folded reports whether d sits on the branch with |Z| > π/2. Every
// rotation decomposes as (Y, X, Z) or (Y+π, π-X, Z+π); Euler keeps
// |X| <= π/2 and so jumps when the device pitches over vertical. Keeping
// |Z| <= π/2 moves the seam to a 90° roll away from the calibration pose.
// The test runs on the relative rotation, so it holds in both modes and
// for a calibration pose tilted sideways. Raw gamma never leaves
// [-90°, 90°] and cannot serve as the landscape trigger.
func folded(d rotation.Euler) bool {
	return math.Abs(rotation.WrapAngle(d.Z)) > math.Pi/2
}

// sampleRotation builds Ry(alpha)·Rx(beta)·Rz(gamma).
func sampleRotation(sample RawSample) rotation.Rotation {
	alpha, beta, gamma := sample.Angles()
	return rotation.FromEuler(rotation.Euler{
		X: rotation.Radians(beta),
		Y: rotation.Radians(alpha),
		Z: rotation.Radians(gamma),
	})
}

// clampPitch limits the pitch of r itself. Slerp between two in-range
// rotations can overshoot slightly when their rolls differ.
func clampPitch(r rotation.Rotation, limit float64) rotation.Rotation {
	e := r.Euler()
	if math.Abs(e.X) <= limit {
		return r
	}
	e.X = clamp(e.X, limit)
	return rotation.FromEuler(e)
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
