// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/photosphere/internal/config"
	"github.com/relabs-tech/photosphere/internal/orientation"
	"github.com/relabs-tech/photosphere/internal/session"
	"github.com/relabs-tech/photosphere/internal/viewer"
)

// RunViewer is the headless viewer: samples from TOPIC_SAMPLES drive a
// session whose camera frames are published on TOPIC_CAMERA.
func RunViewer() error {
	cfg := config.Get()
	ctx, stop := signalContext()
	defer stop()

	client, err := connectMQTT("viewer", cfg.MQTTBroker, cfg.MQTTClientIDViewer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	src, err := orientation.NewMQTTSource(client, cfg.TopicSamples)
	if err != nil {
		return err
	}

	camera, err := viewer.NewCamera(cfg.ViewportWidth, cfg.ViewportHeight, cfg.CameraFOVDeg)
	if err != nil {
		return err
	}
	renderer := viewer.NewRenderer(camera, mqttFrameSink(client, cfg.TopicCamera))

	sess, err := session.Start(ctx, session.Options{
		Source:           src,
		Renderer:         renderer,
		Permitter:        session.AlwaysGranted(),
		Width:            cfg.ViewportWidth,
		Height:           cfg.ViewportHeight,
		RequireLandscape: cfg.RequireLandscape,
		Stabilizer:       cfg.Stabilizer(),
	})
	if err != nil {
		_ = src.Close()
		return err
	}
	defer sess.Close()

	ticker := time.NewTicker(cfg.FrameEvery())
	defer ticker.Stop()

	log.Printf("viewer: rendering every %v to %s", cfg.FrameEvery(), cfg.TopicCamera)
	return sess.Run(ctx, ticker.C)
}

// mqttFrameSink publishes frames without waiting for the broker; a slow
// broker must not stall the render loop.
func mqttFrameSink(client mqtt.Client, topic string) viewer.Sink {
	return viewer.SinkFunc(func(f viewer.Frame) error {
		payload, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("marshal frame: %w", err)
		}
		client.Publish(topic, 0, false, payload)
		return nil
	})
}
