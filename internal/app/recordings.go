// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/relabs-tech/photosphere/internal/config"
	"github.com/relabs-tech/photosphere/internal/recording"
)

// ListRecordings prints every session stored in RECORDING_DB.
func ListRecordings() error {
	cfg := config.Get()
	if cfg.RecordingDB == "" {
		return fmt.Errorf("RECORDING_DB is not set")
	}
	store, err := recording.Open(cfg.RecordingDB)
	if err != nil {
		return err
	}
	defer store.Close()
	return writeRecordings(context.Background(), os.Stdout, store)
}

func writeRecordings(ctx context.Context, w io.Writer, store *recording.Store) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "no recordings")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSAMPLES\tSTARTED\tDURATION")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			s.Name, s.Samples, s.First.Format(time.RFC3339), s.Last.Sub(s.First).Round(time.Millisecond))
	}
	return tw.Flush()
}
