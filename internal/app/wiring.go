// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/photosphere/internal/config"
	"github.com/relabs-tech/photosphere/internal/orientation"
	"github.com/relabs-tech/photosphere/internal/recording"
)

// connectMQTT dials the configured broker.
func connectMQTT(component, broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("%s: MQTT connect %s: %w", component, broker, token.Error())
	}
	log.Printf("%s: connected to MQTT broker at %s", component, broker)
	return client, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openSource builds the sample source named by SAMPLE_SOURCE. When
// RECORDING_DB is set, live sources are recorded and replay reads from it.
// The returned cleanup closes the recording store.
func openSource(ctx context.Context, cfg *config.Config) (orientation.Source, func(), error) {
	var store *recording.Store
	cleanup := func() {}
	if cfg.RecordingDB != "" {
		s, err := recording.Open(cfg.RecordingDB)
		if err != nil {
			return nil, cleanup, err
		}
		store = s
		cleanup = func() {
			if err := store.Close(); err != nil {
				log.Printf("recording: close: %v", err)
			}
		}
	}

	var src orientation.Source
	switch cfg.SampleSource {
	case config.SourceMock:
		log.Println("using mock sample source")
		src = orientation.NewMockSource(cfg.SampleEvery())
	case config.SourceSerial:
		s, err := orientation.NewSerialSource(cfg.SerialPort, uint(cfg.SerialBaudRate))
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		src = s
	case config.SourceIMU:
		s, err := orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.SampleEvery())
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		src = s
	case config.SourceReplay:
		r, err := recording.Replay(ctx, store, cfg.RecordingSession, true)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		log.Printf("replaying %d samples from session %q", r.Len(), cfg.RecordingSession)
		return r, cleanup, nil
	default:
		cleanup()
		return nil, func() {}, fmt.Errorf("unknown sample source %q", cfg.SampleSource)
	}

	if store != nil {
		tee, err := recording.Tee(ctx, src, store, cfg.RecordingSession)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		log.Printf("recording samples to %s (session %q)", cfg.RecordingDB, cfg.RecordingSession)
		src = tee
	}
	return src, cleanup, nil
}
