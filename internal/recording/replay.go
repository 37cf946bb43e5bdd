// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package recording

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/photosphere/internal/orientation"
)

// TeeSource passes samples through from another source and records each
// one before returning it.
type TeeSource struct {
	src     orientation.Source
	store   *Store
	session string
	seq     int64
	now     func() time.Time
}

// Tee records everything read from src under session, continuing after
// any samples already stored for it.
func Tee(ctx context.Context, src orientation.Source, store *Store, session string) (*TeeSource, error) {
	seq, err := store.NextSeq(ctx, session)
	if err != nil {
		return nil, err
	}
	return &TeeSource{src: src, store: store, session: session, seq: seq, now: time.Now}, nil
}

// Next implements orientation.Source. A storage failure is logged and the
// sample still delivered.
func (t *TeeSource) Next(ctx context.Context) (orientation.RawSample, error) {
	sample, err := t.src.Next(ctx)
	if err != nil {
		return sample, err
	}
	if err := t.store.Append(ctx, t.session, t.seq, t.now(), sample); err != nil {
		log.Printf("recording: append %s/%d: %v", t.session, t.seq, err)
	}
	t.seq++
	return sample, nil
}

// Close closes the wrapped source if it can be closed. The store stays
// open.
func (t *TeeSource) Close() error {
	if c, ok := t.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReplaySource plays back a recorded session in seq order.
type ReplaySource struct {
	samples []recorded
	pos     int
	paced   bool
	sleep   func(ctx context.Context, d time.Duration) error
}

// Replay loads session from store. When paced, Next waits the recorded gap
// between consecutive samples.
func Replay(ctx context.Context, store *Store, session string, paced bool) (*ReplaySource, error) {
	samples, err := store.load(ctx, session)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("replay %q: %w", session, ErrUnknownSession)
	}
	return &ReplaySource{samples: samples, paced: paced, sleep: sleepCtx}, nil
}

// Len is the number of samples in the session.
func (r *ReplaySource) Len() int { return len(r.samples) }

// Next returns the next recorded sample, then io.EOF.
func (r *ReplaySource) Next(ctx context.Context) (orientation.RawSample, error) {
	if err := ctx.Err(); err != nil {
		return orientation.RawSample{}, err
	}
	if r.pos >= len(r.samples) {
		return orientation.RawSample{}, io.EOF
	}
	cur := r.samples[r.pos]
	if r.paced && r.pos > 0 {
		gap := cur.at.Sub(r.samples[r.pos-1].at)
		if gap > 0 {
			if err := r.sleep(ctx, gap); err != nil {
				return orientation.RawSample{}, err
			}
		}
	}
	r.pos++
	return cur.sample, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
