// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSource receives JSON samples published on a topic by a producer.
type MQTTSource struct {
	*ChanSource
	client mqtt.Client
	topic  string
}

// NewMQTTSource subscribes to topic on an already connected client.
func NewMQTTSource(client mqtt.Client, topic string) (*MQTTSource, error) {
	s := &MQTTSource{
		ChanSource: NewChanSource(16),
		client:     client,
		topic:      topic,
	}
	token := client.Subscribe(topic, 0, s.handle)
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt source: subscribe %s: %w", topic, err)
	}
	log.Printf("mqtt source: subscribed to %s", topic)
	return s, nil
}

// handle drops samples when the consumer is behind; only the newest pose
// matters for a viewer.
func (s *MQTTSource) handle(_ mqtt.Client, msg mqtt.Message) {
	var sample RawSample
	if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
		log.Printf("mqtt source: bad payload on %s: %v", msg.Topic(), err)
		return
	}
	if !s.TryPush(sample) {
		log.Printf("mqtt source: consumer behind, dropped sample on %s", msg.Topic())
	}
}

// Next implements Source.
func (s *MQTTSource) Next(ctx context.Context) (RawSample, error) {
	return s.ChanSource.Next(ctx)
}

// Close unsubscribes and ends the stream.
func (s *MQTTSource) Close() error {
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	if err := s.ChanSource.Close(); err != nil {
		return err
	}
	return token.Error()
}
