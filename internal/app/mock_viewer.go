// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relabs-tech/photosphere/internal/config"
	"github.com/relabs-tech/photosphere/internal/orientation"
	"github.com/relabs-tech/photosphere/internal/session"
	"github.com/relabs-tech/photosphere/internal/viewer"
)

// RunMockViewer runs the full pipeline offline on the configured source
// (mock by default) and prints the camera pose to stdout.
func RunMockViewer() error {
	cfg := config.Get()
	ctx, stop := signalContext()
	defer stop()

	src, cleanup, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return runPrintedSession(ctx, cfg, src, newPosePrinter(os.Stdout, cfg.ConsoleEvery()))
}

func runPrintedSession(ctx context.Context, cfg *config.Config, src orientation.Source, sink viewer.Sink) error {
	camera, err := viewer.NewCamera(cfg.ViewportWidth, cfg.ViewportHeight, cfg.CameraFOVDeg)
	if err != nil {
		return err
	}
	sess, err := session.Start(ctx, session.Options{
		Source:           src,
		Renderer:         viewer.NewRenderer(camera, sink),
		Width:            cfg.ViewportWidth,
		Height:           cfg.ViewportHeight,
		RequireLandscape: cfg.RequireLandscape,
		Stabilizer:       cfg.Stabilizer(),
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	ticker := time.NewTicker(cfg.FrameEvery())
	defer ticker.Stop()
	return sess.Run(ctx, ticker.C)
}

// newPosePrinter writes at most one pose line per interval.
func newPosePrinter(w io.Writer, every time.Duration) viewer.Sink {
	var last time.Time
	return viewer.SinkFunc(func(f viewer.Frame) error {
		if time.Since(last) < every {
			return nil
		}
		last = time.Now()
		_, err := fmt.Fprintf(w,
			"ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f\n",
			f.Pose.Roll,
			f.Pose.Pitch,
			f.Pose.Yaw,
		)
		return err
	})
}
