// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// IMUSource derives beta and gamma from the gravity vector of an MPU9250
// accelerometer. The chip has no absolute heading, so alpha is absent.
type IMUSource struct {
	imu    *mpu9250.MPU9250
	ticker *time.Ticker
}

// NewIMUSource brings up an MPU9250 on spiDev with chip select csPin and
// samples it every interval.
func NewIMUSource(spiDev, csPin string, interval time.Duration) (*IMUSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("imu source: periph host init: %w: %w", ErrSensorUnavailable, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("imu source: CS pin %q not found: %w", csPin, ErrSensorUnavailable)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("imu source: SPI transport (%s): %w: %w", spiDev, ErrSensorUnavailable, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("imu source: device creation: %w: %w", ErrSensorUnavailable, err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("imu source: initialization: %w: %w", ErrSensorUnavailable, err)
	}

	if err := dev.Calibrate(); err != nil {
		log.Printf("imu source: warning: calibration failed: %v", err)
	} else {
		log.Printf("imu source: calibration complete")
	}

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &IMUSource{imu: dev, ticker: time.NewTicker(interval)}, nil
}

// Next reads the accelerometer on the next tick.
func (s *IMUSource) Next(ctx context.Context) (RawSample, error) {
	select {
	case <-ctx.Done():
		return RawSample{}, ctx.Err()
	case <-s.ticker.C:
	}

	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return RawSample{}, fmt.Errorf("imu source: accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return RawSample{}, fmt.Errorf("imu source: accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return RawSample{}, fmt.Errorf("imu source: accel Z: %w", err)
	}
	return TiltSample(float64(ax), float64(ay), float64(az)), nil
}

// Close stops sampling.
func (s *IMUSource) Close() error {
	s.ticker.Stop()
	return nil
}

// TiltSample converts a gravity vector in device axes into beta and gamma
// in degrees. Units cancel, so raw counts work as well as g.
func TiltSample(ax, ay, az float64) RawSample {
	beta := math.Atan2(ay, az) * 180 / math.Pi
	gamma := math.Atan2(-ax, math.Hypot(ay, az)) * 180 / math.Pi
	return RawSample{Beta: &beta, Gamma: &gamma}
}
