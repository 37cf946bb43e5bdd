// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session ties one viewing session together: the permission gate,
// the orientation mode fixed at start, the stabilizer, the sample
// subscription and the render loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/photosphere/internal/orientation"
	"github.com/relabs-tech/photosphere/internal/rotation"
)

var (
	ErrPermissionDenied  = errors.New("orientation permission denied")
	ErrLandscapeRequired = errors.New("rotate the device to landscape to start")
	ErrSensorUnavailable = orientation.ErrSensorUnavailable
	ErrClosed            = errors.New("session closed")
)

// Renderer is the camera collaborator. It receives the stabilized
// rotation once per render tick.
type Renderer interface {
	Render(rotation.Rotation) error
}

// Resizer is implemented by renderers whose projection depends on the
// viewport.
type Resizer interface {
	Resize(width, height int) error
}

// Options configures Start.
type Options struct {
	// Source is subscribed for the lifetime of the session. Leave nil when
	// samples are pushed with HandleSample.
	Source    orientation.Source
	Renderer  Renderer
	Permitter Permitter

	// Viewport at start. Decides the Mode for the whole session.
	Width  int
	Height int
	// RequireLandscape refuses to start on a portrait viewport.
	RequireLandscape bool

	// Stabilizer defaults to orientation.DefaultConfig when zero.
	Stabilizer orientation.Config
}

// Stats counts what a session has done so far.
type Stats struct {
	Mode         orientation.Mode `json:"mode"`
	Calibrated   bool             `json:"calibrated"`
	Samples      uint64           `json:"samples"`
	Frames       uint64           `json:"frames"`
	RenderErrors uint64           `json:"render_errors"`
	Uptime       time.Duration    `json:"uptime"`
}

// Session is one running viewer.
type Session struct {
	stab     *orientation.Stabilizer
	renderer Renderer
	sub      *orientation.Subscription
	started  time.Time

	samples      atomic.Uint64
	frames       atomic.Uint64
	renderErrors atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Start asks for permission, fixes the mode from the viewport and
// subscribes to opts.Source. Nothing is subscribed when it fails.
func Start(ctx context.Context, opts Options) (*Session, error) {
	if opts.Renderer == nil {
		return nil, fmt.Errorf("session: renderer is required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("session: viewport must be positive, got %dx%d", opts.Width, opts.Height)
	}

	permitter := opts.Permitter
	if permitter == nil {
		permitter = AlwaysGranted()
	}
	perm, err := permitter.RequestPermission(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if perm != Granted {
		return nil, ErrPermissionDenied
	}

	mode := orientation.ModeForViewport(opts.Width, opts.Height)
	if opts.RequireLandscape && mode != orientation.Landscape {
		return nil, ErrLandscapeRequired
	}

	cfg := opts.Stabilizer
	if cfg == (orientation.Config{}) {
		cfg = orientation.DefaultConfig()
	}
	stab, err := orientation.NewStabilizer(mode, cfg)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &Session{
		stab:     stab,
		renderer: opts.Renderer,
		started:  time.Now(),
	}
	if opts.Source != nil {
		s.sub = orientation.Subscribe(ctx, opts.Source)
	}
	log.Printf("session: started in %s mode (%dx%d)", mode, opts.Width, opts.Height)
	return s, nil
}

// Mode is fixed for the life of the session.
func (s *Session) Mode() orientation.Mode { return s.stab.Mode() }

// Latest is the current smoothed rotation.
func (s *Session) Latest() rotation.Rotation { return s.stab.Latest() }

// HandleSample feeds one sample to the stabilizer.
func (s *Session) HandleSample(sample orientation.RawSample) (rotation.Rotation, error) {
	if s.closed.Load() {
		return rotation.Rotation{}, ErrClosed
	}
	if !s.stab.Calibrated() {
		log.Printf("session: calibrating on %s", sample)
	}
	s.samples.Add(1)
	return s.stab.Update(sample), nil
}

// Tick copies the latest rotation onto the renderer.
func (s *Session) Tick() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.renderer.Render(s.stab.Latest()); err != nil {
		s.renderErrors.Add(1)
		return fmt.Errorf("session: render: %w", err)
	}
	s.frames.Add(1)
	return nil
}

// Run consumes subscribed samples and renders on every tick until ctx is
// done, the source ends or rendering fails. A cancelled context or an
// exhausted source returns nil; a failed source returns its error.
func (s *Session) Run(ctx context.Context, ticks <-chan time.Time) error {
	var samples <-chan orientation.RawSample
	if s.sub != nil {
		samples = s.sub.Samples()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case sample, ok := <-samples:
			if !ok {
				if err := s.sub.Err(); err != nil {
					return fmt.Errorf("session: source: %w", err)
				}
				log.Printf("session: source finished after %d samples", s.samples.Load())
				return nil
			}
			if _, err := s.HandleSample(sample); err != nil {
				return err
			}

		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			if err := s.Tick(); err != nil {
				return err
			}
		}
	}
}

// Resize passes a new viewport to the renderer. The mode does not change.
func (s *Session) Resize(width, height int) error {
	if s.closed.Load() {
		return ErrClosed
	}
	r, ok := s.renderer.(Resizer)
	if !ok {
		return nil
	}
	return r.Resize(width, height)
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	return Stats{
		Mode:         s.stab.Mode(),
		Calibrated:   s.stab.Calibrated(),
		Samples:      s.samples.Load(),
		Frames:       s.frames.Load(),
		RenderErrors: s.renderErrors.Load(),
		Uptime:       time.Since(s.started),
	}
}

// Close stops the subscription and releases the source. Further calls are
// no-ops.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.sub != nil {
			s.closeErr = s.sub.Close()
		}
		st := s.Stats()
		log.Printf("session: closed after %d samples, %d frames", st.Samples, st.Frames)
	})
	return s.closeErr
}
