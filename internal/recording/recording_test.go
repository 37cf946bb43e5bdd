// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package recording

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/photosphere/internal/orientation"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "recordings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestAppendAndReplayPreservesAbsentFields(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)

	beta := 12.5
	require.NoError(t, store.Append(ctx, "walk", 0, base, orientation.NewSample(1, 2, 3)))
	require.NoError(t, store.Append(ctx, "walk", 1, base.Add(50*time.Millisecond), orientation.RawSample{Beta: &beta}))

	replay, err := Replay(ctx, store, "walk", false)
	require.NoError(t, err)
	assert.Equal(t, 2, replay.Len())

	s, err := replay.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, orientation.NewSample(1, 2, 3), s)

	s, err = replay.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, s.Alpha)
	assert.Nil(t, s.Gamma)
	require.NotNil(t, s.Beta)
	assert.Equal(t, 12.5, *s.Beta)

	_, err = replay.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestAppendRejectsDuplicates(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Append(ctx, "a", 7, now, orientation.NewSample(0, 0, 0)))
	err := store.Append(ctx, "a", 7, now, orientation.NewSample(0, 0, 0))
	assert.ErrorIs(t, err, ErrDuplicate)

	assert.Error(t, store.Append(ctx, "", 0, now, orientation.RawSample{}))
}

func TestSessionsOrderedWithCounts(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, "zeta", int64(i), now.Add(time.Duration(i)*time.Second), orientation.RawSample{}))
	}
	require.NoError(t, store.Append(ctx, "alpha", 0, now, orientation.RawSample{}))

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "alpha", sessions[0].Name)
	assert.Equal(t, 1, sessions[0].Samples)
	assert.Equal(t, "zeta", sessions[1].Name)
	assert.Equal(t, 3, sessions[1].Samples)
	assert.Equal(t, 2*time.Second, sessions[1].Last.Sub(sessions[1].First))
}

func TestReplayUnknownSession(t *testing.T) {
	store := openTempStore(t)
	_, err := Replay(context.Background(), store, "missing", false)
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestTeeRecordsAndResumes(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	src := orientation.NewChanSource(4)
	for i := 0; i < 3; i++ {
		require.NoError(t, src.Push(ctx, orientation.NewSample(float64(i), 0, 0)))
	}
	require.NoError(t, src.Close())

	tee, err := Tee(ctx, src, store, "desk")
	require.NoError(t, err)
	for {
		_, err := tee.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	next, err := store.NextSeq(ctx, "desk")
	require.NoError(t, err)
	assert.Equal(t, int64(3), next)

	resumed, err := Tee(ctx, orientation.NewChanSource(0), store, "desk")
	require.NoError(t, err)
	assert.Equal(t, int64(3), resumed.seq)

	replay, err := Replay(ctx, store, "desk", false)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		s, err := replay.Next(ctx)
		require.NoError(t, err)
		a, _, _ := s.Angles()
		assert.Equal(t, float64(i), a)
	}
}

func TestPaddedSessionNameResumes(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	at := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, "  porch ", 0, at, orientation.NewSample(1, 2, 3)))
	next, err := store.NextSeq(ctx, " porch")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	src := orientation.NewChanSource(1)
	require.NoError(t, src.Push(ctx, orientation.NewSample(4, 5, 6)))
	require.NoError(t, src.Close())
	tee, err := Tee(ctx, src, store, "porch  ")
	require.NoError(t, err)
	_, err = tee.Next(ctx)
	require.NoError(t, err)

	replay, err := Replay(ctx, store, "\tporch", false)
	require.NoError(t, err)
	assert.Equal(t, 2, replay.Len())

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "porch", sessions[0].Name)
}

func TestPacedReplayWaitsRecordedGaps(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	base := time.Unix(1000, 0)
	require.NoError(t, store.Append(ctx, "p", 0, base, orientation.RawSample{}))
	require.NoError(t, store.Append(ctx, "p", 1, base.Add(40*time.Millisecond), orientation.RawSample{}))
	require.NoError(t, store.Append(ctx, "p", 2, base.Add(40*time.Millisecond), orientation.RawSample{}))

	replay, err := Replay(ctx, store, "p", true)
	require.NoError(t, err)
	var waits []time.Duration
	replay.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	for i := 0; i < 3; i++ {
		_, err := replay.Next(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, []time.Duration{40 * time.Millisecond}, waits)
}

func TestPacedReplayHonoursCancel(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	base := time.Unix(1000, 0)
	require.NoError(t, store.Append(ctx, "slow", 0, base, orientation.RawSample{}))
	require.NoError(t, store.Append(ctx, "slow", 1, base.Add(time.Hour), orientation.RawSample{}))

	replay, err := Replay(ctx, store, "slow", true)
	require.NoError(t, err)
	_, err = replay.Next(ctx)
	require.NoError(t, err)

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = replay.Next(cctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
