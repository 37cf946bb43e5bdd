// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/photosphere/internal/config"
	"github.com/relabs-tech/photosphere/internal/orientation"
)

// RunSampleProducer reads raw samples from the configured source and
// publishes each one as JSON on TOPIC_SAMPLES.
func RunSampleProducer() error {
	cfg := config.Get()
	ctx, stop := signalContext()
	defer stop()

	src, cleanup, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := connectMQTT("producer", cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	log.Printf("producer: publishing samples to %s", cfg.TopicSamples)
	return publishSamples(ctx, src, client, cfg.TopicSamples, cfg.ConsoleEvery())
}

// publishSamples forwards samples until ctx is done or the source ends.
// Bad publishes are logged and skipped.
func publishSamples(ctx context.Context, src orientation.Source, client mqtt.Client, topic string, logEvery time.Duration) error {
	sub := orientation.Subscribe(ctx, src)
	defer sub.Close()

	var published int
	var lastLog time.Time
	for sample := range sub.Samples() {
		payload, err := json.Marshal(sample)
		if err != nil {
			log.Printf("producer: json marshal error: %v", err)
			continue
		}
		token := client.Publish(topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("producer: MQTT publish error: %v", token.Error())
			continue
		}
		published++

		if time.Since(lastLog) >= logEvery {
			log.Printf("producer: %s (%d published)", sample, published)
			lastLog = time.Now()
		}
	}

	if err := sub.Err(); err != nil {
		return err
	}
	log.Printf("producer: source finished after %d samples", published)
	return nil
}
