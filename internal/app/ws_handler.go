// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/photosphere/internal/orientation"
	"github.com/relabs-tech/photosphere/internal/session"
	"github.com/relabs-tech/photosphere/internal/viewer"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is sent by the browser.
type WSMessage struct {
	Type       string   `json:"type"` // start, sample, resize, stop
	Width      int      `json:"width,omitempty"`
	Height     int      `json:"height,omitempty"`
	Permission string   `json:"permission,omitempty"`
	Alpha      *float64 `json:"alpha,omitempty"`
	Beta       *float64 `json:"beta,omitempty"`
	Gamma      *float64 `json:"gamma,omitempty"`
}

// WSResponse is sent to the browser.
type WSResponse struct {
	Type    string         `json:"type"` // started, frame, stopped, error
	Mode    string         `json:"mode,omitempty"`
	Frame   *viewer.Frame  `json:"frame,omitempty"`
	Stats   *session.Stats `json:"stats,omitempty"`
	Message string         `json:"message,omitempty"`
}

// viewerConn is one browser tab. The read loop owns it; the render loop
// only writes frames through send.
type viewerConn struct {
	srv  *webServer
	conn *websocket.Conn
	wmu  sync.Mutex

	sess    *session.Session
	samples *orientation.ChanSource
	cancel  context.CancelFunc
	runDone chan struct{}
}

func (s *webServer) handleViewerWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	s.active.Add(1)
	defer s.active.Add(-1)

	vc := &viewerConn{srv: s, conn: conn}
	defer vc.stop()

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("web: websocket read error: %v", err)
			}
			return
		}

		switch msg.Type {
		case "start":
			vc.start(r.Context(), msg)

		case "sample":
			if vc.sess == nil {
				vc.sendError("start a session first")
				continue
			}
			sample := orientation.RawSample{Alpha: msg.Alpha, Beta: msg.Beta, Gamma: msg.Gamma}
			if !vc.samples.TryPush(sample) {
				log.Printf("web: session behind, dropped sample")
			}

		case "resize":
			if vc.sess == nil {
				vc.sendError("start a session first")
				continue
			}
			if err := vc.sess.Resize(msg.Width, msg.Height); err != nil {
				vc.sendError(err.Error())
			}

		case "stop":
			log.Printf("web: session stopped by client")
			if vc.sess != nil {
				st := vc.sess.Stats()
				vc.stop()
				_ = vc.send(WSResponse{Type: "stopped", Stats: &st})
			}
			return

		default:
			vc.sendError("unknown message type " + msg.Type)
		}
	}
}

func (vc *viewerConn) start(ctx context.Context, msg WSMessage) {
	if vc.sess != nil {
		vc.sendError("session already started")
		return
	}
	cfg := vc.srv.cfg

	camera, err := viewer.NewCamera(max(msg.Width, 1), max(msg.Height, 1), cfg.CameraFOVDeg)
	if err != nil {
		vc.sendError(err.Error())
		return
	}
	samples := orientation.NewChanSource(64)
	renderer := viewer.NewRenderer(camera, viewer.SinkFunc(vc.sendFrame))

	runCtx, cancel := context.WithCancel(ctx)
	sess, err := session.Start(runCtx, session.Options{
		Source:           samples,
		Renderer:         renderer,
		Permitter:        session.StaticPermission(session.ParsePermission(msg.Permission)),
		Width:            msg.Width,
		Height:           msg.Height,
		RequireLandscape: cfg.RequireLandscape,
		Stabilizer:       cfg.Stabilizer(),
	})
	if err != nil {
		cancel()
		_ = samples.Close()
		log.Printf("web: session refused: %v", err)
		vc.sendError(err.Error())
		return
	}

	vc.sess, vc.samples, vc.cancel = sess, samples, cancel
	vc.runDone = make(chan struct{})
	_ = vc.send(WSResponse{Type: "started", Mode: sess.Mode().String()})

	go func() {
		defer close(vc.runDone)
		ticker := time.NewTicker(cfg.FrameEvery())
		defer ticker.Stop()
		if err := sess.Run(runCtx, ticker.C); err != nil && !errors.Is(err, session.ErrClosed) {
			log.Printf("web: session ended: %v", err)
			vc.sendError(err.Error())
		}
	}()
}

func (vc *viewerConn) stop() {
	if vc.sess == nil {
		return
	}
	vc.cancel()
	<-vc.runDone
	if err := vc.sess.Close(); err != nil {
		log.Printf("web: session close: %v", err)
	}
	vc.sess = nil
}

func (vc *viewerConn) sendFrame(f viewer.Frame) error {
	vc.srv.latest.Store(&f)
	return vc.send(WSResponse{Type: "frame", Frame: &f})
}

func (vc *viewerConn) sendError(message string) {
	if err := vc.send(WSResponse{Type: "error", Message: message}); err != nil {
		log.Printf("web: websocket write error: %v", err)
	}
}

func (vc *viewerConn) send(resp WSResponse) error {
	vc.wmu.Lock()
	defer vc.wmu.Unlock()
	_ = vc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return vc.conn.WriteJSON(resp)
}
