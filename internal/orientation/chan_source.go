// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrSourceClosed is returned by Push after Close.
var ErrSourceClosed = errors.New("sample source closed")

// ChanSource is a push-driven Source. Hosts that receive samples from
// elsewhere (a websocket, an MQTT callback) Push them in and a
// Subscription pulls them out.
type ChanSource struct {
	ch        chan RawSample
	done      chan struct{}
	closeOnce sync.Once
}

// NewChanSource buffers up to buffer samples.
func NewChanSource(buffer int) *ChanSource {
	if buffer < 0 {
		buffer = 0
	}
	return &ChanSource{ch: make(chan RawSample, buffer), done: make(chan struct{})}
}

// Push queues a sample, blocking while the buffer is full. A Push blocked
// on a full buffer returns ErrSourceClosed as soon as Close is called.
func (c *ChanSource) Push(ctx context.Context, sample RawSample) error {
	select {
	case <-c.done:
		return ErrSourceClosed
	default:
	}
	select {
	case c.ch <- sample:
		return nil
	case <-c.done:
		return ErrSourceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPush queues a sample only if there is room. It reports whether the
// sample was accepted.
func (c *ChanSource) TryPush(sample RawSample) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.ch <- sample:
		return true
	default:
		return false
	}
}

// Next returns queued samples in order, then io.EOF once closed and
// drained.
func (c *ChanSource) Next(ctx context.Context) (RawSample, error) {
	select {
	case s := <-c.ch:
		return s, nil
	case <-c.done:
		select {
		case s := <-c.ch:
			return s, nil
		default:
			return RawSample{}, io.EOF
		}
	case <-ctx.Done():
		return RawSample{}, ctx.Err()
	}
}

// Close ends the stream. Samples already queued are still delivered.
func (c *ChanSource) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
