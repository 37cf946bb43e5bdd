// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/photosphere/internal/config"
	"github.com/relabs-tech/photosphere/internal/orientation"
	"github.com/relabs-tech/photosphere/internal/recording"
	"github.com/relabs-tech/photosphere/internal/rotation"
	"github.com/relabs-tech/photosphere/internal/viewer"
)

func testConfig() *config.Config {
	return &config.Config{
		MQTTBroker:         "tcp://localhost:1883",
		TopicSamples:       "ps/samples",
		TopicCamera:        "ps/camera",
		SampleSource:       config.SourceMock,
		SampleInterval:     1,
		SmoothingFactor:    0.1,
		PitchClampDeg:      72.8,
		ViewportWidth:      390,
		ViewportHeight:     844,
		FrameInterval:      2,
		CameraFOVDeg:       75,
		ConsoleLogInterval: 1,
	}
}

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	payload []byte
}

// fakeClient records publishes and nothing else.
type fakeClient struct {
	mu   sync.Mutex
	sent []published
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() mqtt.Token    { return fakeToken{} }
func (c *fakeClient) Disconnect(uint)        {}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, published{topic: topic, payload: payload.([]byte)})
	return fakeToken{}
}

func (c *fakeClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token { return fakeToken{} }

func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}

func (c *fakeClient) Unsubscribe(...string) mqtt.Token        { return fakeToken{} }
func (c *fakeClient) AddRoute(string, mqtt.MessageHandler)    {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func (c *fakeClient) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.sent...)
}

func TestPublishSamples(t *testing.T) {
	src := orientation.NewChanSource(3)
	ctx := context.Background()
	require.NoError(t, src.Push(ctx, orientation.NewSample(1, 2, 3)))
	beta := 4.0
	require.NoError(t, src.Push(ctx, orientation.RawSample{Beta: &beta}))
	require.NoError(t, src.Close())

	client := &fakeClient{}
	require.NoError(t, publishSamples(ctx, src, client, "ps/samples", time.Hour))

	msgs := client.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "ps/samples", msgs[0].topic)
	assert.JSONEq(t, `{"alpha":1,"beta":2,"gamma":3}`, string(msgs[0].payload))
	assert.JSONEq(t, `{"alpha":null,"beta":4,"gamma":null}`, string(msgs[1].payload))
}

func TestMQTTFrameSink(t *testing.T) {
	client := &fakeClient{}
	cam, err := viewer.NewCamera(100, 50, 75)
	require.NoError(t, err)
	r := viewer.NewRenderer(cam, mqttFrameSink(client, "ps/camera"))
	require.NoError(t, r.Render(rotation.FromEuler(rotation.Euler{Y: 0.5})))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	var f viewer.Frame
	require.NoError(t, json.Unmarshal(msgs[0].payload, &f))
	assert.Equal(t, uint64(1), f.Seq)
	assert.InDelta(t, 0.5*180/3.141592653589793, f.Pose.Yaw, 1e-4)
}

func TestOpenSource(t *testing.T) {
	cfg := testConfig()
	ctx := context.Background()

	src, cleanup, err := openSource(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &orientation.MockSource{}, src)
	cleanup()

	cfg.RecordingDB = filepath.Join(t.TempDir(), "rec.db")
	cfg.RecordingSession = "bench"
	src, cleanup, err = openSource(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &recording.TeeSource{}, src)
	_, err = src.Next(ctx)
	require.NoError(t, err)
	cleanup()

	cfg.SampleSource = config.SourceReplay
	src, cleanup, err = openSource(ctx, cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &recording.ReplaySource{}, src)

	cfg.RecordingSession = "missing"
	_, _, err = openSource(ctx, cfg)
	assert.ErrorIs(t, err, recording.ErrUnknownSession)

	cfg.SampleSource = "telepathy"
	_, _, err = openSource(ctx, cfg)
	assert.Error(t, err)
}

func TestRunPrintedSession(t *testing.T) {
	cfg := testConfig()
	cfg.FrameInterval = 1
	src := orientation.NewChanSource(1)
	go func() {
		ctx := context.Background()
		_ = src.Push(ctx, orientation.NewSample(0, 0, 0))
		for i := 0; i < 20; i++ {
			time.Sleep(3 * time.Millisecond)
			_ = src.Push(ctx, orientation.NewSample(0, 20, 0))
		}
		_ = src.Close()
	}()

	var out syncBuffer
	err := runPrintedSession(context.Background(), cfg, src, newPosePrinter(&out, 0))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "PITCH=")
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestWriteRecordings(t *testing.T) {
	store, err := recording.Open(filepath.Join(t.TempDir(), "rec.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, writeRecordings(ctx, &out, store))
	assert.Equal(t, "no recordings\n", out.String())

	base := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, "hall", 0, base, orientation.RawSample{}))
	require.NoError(t, store.Append(ctx, "hall", 1, base.Add(1500*time.Millisecond), orientation.RawSample{}))

	out.Reset()
	require.NoError(t, writeRecordings(ctx, &out, store))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "SESSION")
	assert.Contains(t, lines[1], "hall")
	assert.Contains(t, lines[1], "1.5s")
}

func TestConsoleModel(t *testing.T) {
	m := newConsoleModel("ps/camera")
	assert.Contains(t, m.View(), "waiting for frames")

	cam, err := viewer.NewCamera(100, 100, 75)
	require.NoError(t, err)
	cam.SetRotation(rotation.FromEuler(rotation.Euler{X: rotation.Radians(10)}))

	next, cmd := m.Update(frameMsg(cam.Frame()))
	assert.Nil(t, cmd)
	m = next.(consoleModel)
	view := m.View()
	assert.Contains(t, view, "PITCH=  10.00")
	assert.Contains(t, view, "(1 received)")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m = next.(consoleModel)
	next, _ = m.Update(frameMsg(viewer.Frame{Seq: 99}))
	m = next.(consoleModel)
	assert.Equal(t, uint64(1), m.frame.Seq, "paused view keeps the old frame")
	assert.Equal(t, 2, m.received)
	assert.Contains(t, m.View(), "[paused]")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
}

func TestHorizon(t *testing.T) {
	level := horizon(0, 0)
	assert.Equal(t, 41, strings.Index(level, " "))
	assert.Equal(t, 'o', []rune(level)[20])

	tilted := horizon(45, 90)
	assert.Equal(t, 'o', []rune(tilted)[40])
	assert.True(t, strings.HasSuffix(tilted, "^^^^^"))
}

func countOn(img *image1bit.VerticalLSB) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestPoseImage(t *testing.T) {
	waiting := poseImage(viewer.Frame{}, false, false)
	assert.Equal(t, oledWidth, waiting.Bounds().Dx())
	assert.Equal(t, oledHeight, waiting.Bounds().Dy())
	assert.Greater(t, countOn(waiting), 0)

	live := poseImage(viewer.Frame{}, true, false)
	stale := poseImage(viewer.Frame{}, true, true)
	assert.Greater(t, countOn(stale), countOn(live))
	assert.Greater(t, countOn(splashImage()), 0)
}
