// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"math"
	"time"
)

// MockSource produces a synthetic phone sweep: a slow compass turn with
// the phone held upright and rocking a little side to side.
type MockSource struct {
	interval time.Duration
	start    time.Time
	now      func() time.Time
	ticker   *time.Ticker
}

// NewMockSource emits one sample per interval. A zero interval emits as
// fast as the consumer reads.
func NewMockSource(interval time.Duration) *MockSource {
	m := &MockSource{interval: interval, now: time.Now}
	m.start = m.now()
	if interval > 0 {
		m.ticker = time.NewTicker(interval)
	}
	return m
}

// Next waits for the next tick and returns the sample for that moment.
func (m *MockSource) Next(ctx context.Context) (RawSample, error) {
	if m.ticker != nil {
		select {
		case <-ctx.Done():
			return RawSample{}, ctx.Err()
		case <-m.ticker.C:
		}
	} else if err := ctx.Err(); err != nil {
		return RawSample{}, err
	}
	return MockSampleAt(m.now().Sub(m.start)), nil
}

// Close stops the ticker.
func (m *MockSource) Close() error {
	if m.ticker != nil {
		m.ticker.Stop()
	}
	return nil
}

// MockSampleAt is the deterministic sweep at elapsed time d.
func MockSampleAt(d time.Duration) RawSample {
	t := d.Seconds()
	alpha := math.Mod(t*30, 360)
	beta := 60 + 15*math.Cos(0.7*t)
	gamma := 20 * math.Sin(t)
	return NewSample(alpha, beta, gamma)
}
