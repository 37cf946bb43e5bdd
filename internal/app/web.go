// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/photosphere/internal/config"
	"github.com/relabs-tech/photosphere/internal/viewer"
)

// webServer serves the static viewer, the latest camera frame and the
// per-browser websocket sessions.
type webServer struct {
	cfg    *config.Config
	latest atomic.Pointer[viewer.Frame]
	active atomic.Int64
}

func newWebServer(cfg *config.Config) *webServer {
	return &webServer{cfg: cfg}
}

// RunWeb starts the HTTP server. Frames published by a headless viewer on
// TOPIC_CAMERA also feed /api/camera when the broker is reachable.
func RunWeb() error {
	cfg := config.Get()
	ctx, stop := signalContext()
	defer stop()

	srv := newWebServer(cfg)

	client, err := connectMQTT("web", cfg.MQTTBroker, cfg.MQTTClientIDViewer+"-web")
	if err != nil {
		log.Printf("web: continuing without MQTT: %v", err)
	} else {
		defer client.Disconnect(250)
		if err := srv.followCamera(client, cfg.TopicCamera); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("web: listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *webServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleViewerWS)
	mux.HandleFunc("/api/camera", s.handleCamera)
	if s.cfg.WebStaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.WebStaticDir)))
	}
	return mux
}

func (s *webServer) followCamera(client mqtt.Client, topic string) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f viewer.Frame
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("web: camera frame unmarshal error: %v", err)
			return
		}
		s.latest.Store(&f)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", topic)
	return nil
}

func (s *webServer) handleCamera(w http.ResponseWriter, r *http.Request) {
	f := s.latest.Load()
	if f == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(f); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}
