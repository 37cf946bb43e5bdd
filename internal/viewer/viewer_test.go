// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package viewer

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/photosphere/internal/rotation"
)

func assertVec(t *testing.T, want [3]float64, got [3]float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], float64(got[i]), 1e-5, "component %d of %v", i, got)
	}
}

func TestNewCameraValidates(t *testing.T) {
	_, err := NewCamera(0, 100, DefaultFOV)
	assert.Error(t, err)
	_, err = NewCamera(100, 100, 180)
	assert.Error(t, err)
	_, err = NewCamera(100, 100, DefaultFOV)
	assert.NoError(t, err)
}

func TestIdentityFrame(t *testing.T) {
	cam, err := NewCamera(800, 400, 90)
	require.NoError(t, err)
	f := cam.Frame()

	assertVec(t, [3]float64{0, 0, -1}, f.Forward)
	assertVec(t, [3]float64{0, 1, 0}, f.Up)
	assert.InDelta(t, 2.0, float64(f.Aspect), 1e-6)

	identity := [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	for i := range identity {
		assert.InDelta(t, float64(identity[i]), float64(f.View[i]), 1e-5, "view[%d]", i)
	}
	// fov 90 gives a focal length of 1; x is divided by the aspect.
	assert.InDelta(t, 0.5, float64(f.Projection[0]), 1e-5)
	assert.InDelta(t, 1.0, float64(f.Projection[5]), 1e-5)
}

func TestFrameFollowsRotation(t *testing.T) {
	cam, err := NewCamera(100, 100, DefaultFOV)
	require.NoError(t, err)

	cam.SetRotation(rotation.FromEuler(rotation.Euler{Y: math.Pi / 2}))
	f := cam.Frame()
	assert.Equal(t, uint64(1), f.Seq)
	assertVec(t, [3]float64{-1, 0, 0}, f.Forward)
	assert.InDelta(t, 90, f.Pose.Yaw, 1e-9)

	cam.SetRotation(rotation.FromEuler(rotation.Euler{X: math.Pi / 6}))
	f = cam.Frame()
	assertVec(t, [3]float64{0, 0.5, -math.Sqrt(3) / 2}, f.Forward)
	assert.InDelta(t, 30, f.Pose.Pitch, 1e-9)
}

func TestResizeOnlyChangesProjection(t *testing.T) {
	cam, err := NewCamera(100, 100, DefaultFOV)
	require.NoError(t, err)
	cam.SetRotation(rotation.FromEuler(rotation.Euler{Y: 0.4, X: 0.2}))
	before := cam.Frame()

	require.NoError(t, cam.Resize(300, 100))
	after := cam.Frame()
	assert.Equal(t, before.View, after.View)
	assert.Equal(t, before.Forward, after.Forward)
	assert.NotEqual(t, before.Projection, after.Projection)
	assert.InDelta(t, 3.0, float64(after.Aspect), 1e-6)

	assert.Error(t, cam.Resize(-1, 10))
}

func TestRendererDrawsToSink(t *testing.T) {
	cam, err := NewCamera(640, 480, DefaultFOV)
	require.NoError(t, err)

	var drawn []Frame
	r := NewRenderer(cam, SinkFunc(func(f Frame) error {
		drawn = append(drawn, f)
		return nil
	}))
	_, ok := r.LastFrame()
	assert.False(t, ok)

	require.NoError(t, r.Render(rotation.Identity()))
	require.NoError(t, r.Render(rotation.FromEuler(rotation.Euler{Z: 0.3})))
	require.Len(t, drawn, 2)
	assert.Equal(t, uint64(2), drawn[1].Seq)

	last, ok := r.LastFrame()
	require.True(t, ok)
	assert.Equal(t, drawn[1], last)

	require.NoError(t, r.Resize(480, 640))
	assert.Equal(t, 480, r.Camera().Frame().Width)
}

func TestRendererWrapsSinkError(t *testing.T) {
	cam, err := NewCamera(10, 10, DefaultFOV)
	require.NoError(t, err)
	boom := errors.New("closed")
	r := NewRenderer(cam, SinkFunc(func(Frame) error { return boom }))
	assert.ErrorIs(t, r.Render(rotation.Identity()), boom)
}

func TestFrameJSON(t *testing.T) {
	cam, err := NewCamera(10, 10, DefaultFOV)
	require.NoError(t, err)
	b, err := json.Marshal(cam.Frame())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	q, ok := decoded["quaternion"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.0, q["w"])
	assert.Contains(t, decoded, "pose")
	assert.Contains(t, decoded, "view")
}
