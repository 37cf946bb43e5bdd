// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// ErrSkipLine marks a line that carries no orientation data.
var ErrSkipLine = errors.New("no orientation data in line")

// SerialSource reads samples from a line-oriented serial stream. Each line
// is either "alpha,beta,gamma" in degrees, with empty fields for missing
// values, or an NMEA HDT sentence whose true heading becomes alpha.
type SerialSource struct {
	port   io.ReadCloser
	lines  chan lineResult
	closed chan struct{}

	closeOnce sync.Once
	closeErr  error
}

type lineResult struct {
	line string
	err  error
}

// NewSerialSource opens portName at baud, 8N1.
func NewSerialSource(portName string, baud uint) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial source: open %s: %w: %w", portName, ErrSensorUnavailable, err)
	}
	log.Printf("serial source: opened %s at %d baud", portName, baud)
	return NewReaderSource(port), nil
}

// NewReaderSource parses samples from any line stream. Closing the source
// closes r.
func NewReaderSource(r io.ReadCloser) *SerialSource {
	s := &SerialSource{
		port:   r,
		lines:  make(chan lineResult),
		closed: make(chan struct{}),
	}
	go s.read()
	return s
}

func (s *SerialSource) read() {
	reader := bufio.NewReader(s.port)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			select {
			case s.lines <- lineResult{line: line}:
			case <-s.closed:
				return
			}
		}
		if err != nil {
			select {
			case s.lines <- lineResult{err: err}:
			case <-s.closed:
			}
			return
		}
	}
}

// Next returns the next parseable sample. Unparseable lines are skipped.
func (s *SerialSource) Next(ctx context.Context) (RawSample, error) {
	for {
		select {
		case <-ctx.Done():
			return RawSample{}, ctx.Err()
		case <-s.closed:
			return RawSample{}, io.EOF
		case r := <-s.lines:
			if r.err != nil {
				if errors.Is(r.err, io.EOF) {
					return RawSample{}, io.EOF
				}
				return RawSample{}, fmt.Errorf("serial source: read: %w", r.err)
			}
			sample, err := ParseLine(r.line)
			if err != nil {
				if !errors.Is(err, ErrSkipLine) {
					log.Printf("serial source: %v", err)
				}
				continue
			}
			return sample, nil
		}
	}
}

// Close releases the port. Later calls return the first call's result.
func (s *SerialSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.port.Close()
	})
	return s.closeErr
}

// ParseLine decodes one serial line. Blank lines and NMEA sentences other
// than HDT return ErrSkipLine.
func ParseLine(line string) (RawSample, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return RawSample{}, ErrSkipLine
	}

	if strings.HasPrefix(line, "$") {
		sentence, err := nmea.Parse(line)
		if err != nil {
			return RawSample{}, fmt.Errorf("parse NMEA %q: %w", line, err)
		}
		if sentence.DataType() != nmea.TypeHDT {
			return RawSample{}, ErrSkipLine
		}
		hdt := sentence.(nmea.HDT)
		heading := hdt.Heading
		return RawSample{Alpha: &heading}, nil
	}

	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return RawSample{}, fmt.Errorf("parse sample %q: want 3 fields, got %d", line, len(fields))
	}
	var out [3]*float64
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return RawSample{}, fmt.Errorf("parse sample %q field %d: %w", line, i, err)
		}
		out[i] = &v
	}
	return RawSample{Alpha: out[0], Beta: out[1], Gamma: out[2]}, nil
}
