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

// Subscription delivers samples from a Source on a channel until it is
// closed, the context ends, or the source fails. It cannot be restarted.
type Subscription struct {
	samples chan RawSample
	cancel  context.CancelFunc
	done    chan struct{}
	src     Source

	once sync.Once
	mu   sync.Mutex
	err  error
}

// Subscribe starts pulling from src in a goroutine.
func Subscribe(ctx context.Context, src Source) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		samples: make(chan RawSample),
		cancel:  cancel,
		done:    make(chan struct{}),
		src:     src,
	}
	go sub.loop(ctx)
	return sub
}

func (s *Subscription) loop(ctx context.Context) {
	defer close(s.done)
	defer close(s.samples)

	for {
		sample, err := s.src.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.setErr(err)
			}
			return
		}
		select {
		case s.samples <- sample:
		case <-ctx.Done():
			return
		}
	}
}

// Samples is closed when the subscription ends.
func (s *Subscription) Samples() <-chan RawSample { return s.samples }

// Done is closed once the pulling goroutine has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the source error that ended the subscription, if any.
// Cancellation and io.EOF are not errors.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Close stops delivery and releases the source. After Close returns no
// further samples are sent. Safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		if c, ok := s.src.(io.Closer); ok {
			err = c.Close()
		}
		<-s.done
	})
	return err
}
