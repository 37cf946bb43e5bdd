// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/relabs-tech/photosphere/internal/orientation"
)

// EnvPrefix is prepended to every key when reading overrides from the
// environment, e.g. PHOTOSPHERE_MQTT_BROKER.
const EnvPrefix = "PHOTOSPHERE_"

// Sample sources understood by SAMPLE_SOURCE.
const (
	SourceMock   = "mock"
	SourceSerial = "serial"
	SourceIMU    = "imu"
	SourceReplay = "replay"
)

// I2CAddr accepts decimal or 0x-prefixed hex.
type I2CAddr uint16

func (a *I2CAddr) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(strings.TrimSpace(string(text)), 0, 16)
	if err != nil {
		return fmt.Errorf("invalid I2C address %q: %w", text, err)
	}
	*a = I2CAddr(v)
	return nil
}

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string `env:"MQTT_BROKER"`
	MQTTClientIDProducer string `env:"MQTT_CLIENT_ID_PRODUCER"`
	MQTTClientIDViewer   string `env:"MQTT_CLIENT_ID_VIEWER"`
	MQTTClientIDConsole  string `env:"MQTT_CLIENT_ID_CONSOLE"`
	MQTTClientIDDisplay  string `env:"MQTT_CLIENT_ID_DISPLAY"`

	// Topics
	TopicSamples string `env:"TOPIC_SAMPLES"`
	TopicCamera  string `env:"TOPIC_CAMERA"`

	// Sample source
	SampleSource   string `env:"SAMPLE_SOURCE"`
	SampleInterval int    `env:"SAMPLE_INTERVAL"` // milliseconds
	SerialPort     string `env:"SERIAL_PORT"`
	SerialBaudRate int    `env:"SERIAL_BAUD_RATE"`
	IMUSPIDevice   string `env:"IMU_SPI_DEVICE"`
	IMUCSPin       string `env:"IMU_CS_PIN"`

	// Stabilizer
	SmoothingFactor float64 `env:"SMOOTHING_FACTOR"`
	PitchClampDeg   float64 `env:"PITCH_CLAMP_DEG"`

	// Viewer
	ViewportWidth    int     `env:"ORIENTATION_VIEWPORT_WIDTH"`
	ViewportHeight   int     `env:"ORIENTATION_VIEWPORT_HEIGHT"`
	RequireLandscape bool    `env:"REQUIRE_LANDSCAPE"`
	FrameInterval    int     `env:"FRAME_INTERVAL"` // milliseconds
	CameraFOVDeg     float64 `env:"CAMERA_FOV_DEG"`

	// Web Server
	WebServerPort int    `env:"WEB_SERVER_PORT"`
	WebStaticDir  string `env:"WEB_STATIC_DIR"`

	// Recording
	RecordingDB      string `env:"RECORDING_DB"`      // empty disables recording
	RecordingSession string `env:"RECORDING_SESSION"` // session name to record into or replay

	// Timing
	ConsoleLogInterval int `env:"CONSOLE_LOG_INTERVAL"` // milliseconds

	// Display
	DisplayI2CAddr        I2CAddr `env:"DISPLAY_I2C_ADDR"`
	DisplayUpdateInterval int     `env:"DISPLAY_UPDATE_INTERVAL"` // milliseconds
}

// Package-level singleton. InitGlobal sets it once; Get reads it under a
// read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file, applies PHOTOSPHERE_* environment
// overrides and validates the result.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads KEY=VALUE lines. Blank lines and # comments are skipped.
// The result is not validated.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{}
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_VIEWER":
		c.MQTTClientIDViewer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_SAMPLES":
		c.TopicSamples = value
	case "TOPIC_CAMERA":
		c.TopicCamera = value

	// Sample source
	case "SAMPLE_SOURCE":
		c.SampleSource = strings.ToLower(value)
	case "SAMPLE_INTERVAL":
		return setInt(&c.SampleInterval, key, value)
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		return setInt(&c.SerialBaudRate, key, value)
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// Stabilizer
	case "SMOOTHING_FACTOR":
		return setFloat(&c.SmoothingFactor, key, value)
	case "PITCH_CLAMP_DEG":
		return setFloat(&c.PitchClampDeg, key, value)

	// Viewer
	case "ORIENTATION_VIEWPORT_WIDTH":
		return setInt(&c.ViewportWidth, key, value)
	case "ORIENTATION_VIEWPORT_HEIGHT":
		return setInt(&c.ViewportHeight, key, value)
	case "REQUIRE_LANDSCAPE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid REQUIRE_LANDSCAPE %q: %w", value, err)
		}
		c.RequireLandscape = b
	case "FRAME_INTERVAL":
		return setInt(&c.FrameInterval, key, value)
	case "CAMERA_FOV_DEG":
		return setFloat(&c.CameraFOVDeg, key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		return setInt(&c.WebServerPort, key, value)
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Recording
	case "RECORDING_DB":
		c.RecordingDB = value
	case "RECORDING_SESSION":
		c.RecordingSession = value

	// Timing
	case "CONSOLE_LOG_INTERVAL":
		return setInt(&c.ConsoleLogInterval, key, value)

	// Display
	case "DISPLAY_I2C_ADDR":
		return c.DisplayI2CAddr.UnmarshalText([]byte(value))
	case "DISPLAY_UPDATE_INTERVAL":
		return setInt(&c.DisplayUpdateInterval, key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func setInt(dst *int, key, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

func setFloat(dst *float64, key, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

// validate checks that all required fields are set and in range.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicSamples == "" {
		return fmt.Errorf("TOPIC_SAMPLES is required")
	}
	if c.TopicCamera == "" {
		return fmt.Errorf("TOPIC_CAMERA is required")
	}

	switch c.SampleSource {
	case SourceMock:
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required when SAMPLE_SOURCE=serial")
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE is required when SAMPLE_SOURCE=serial")
		}
	case SourceIMU:
		if c.IMUSPIDevice == "" || c.IMUCSPin == "" {
			return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required when SAMPLE_SOURCE=imu")
		}
	case SourceReplay:
		if c.RecordingDB == "" || c.RecordingSession == "" {
			return fmt.Errorf("RECORDING_DB and RECORDING_SESSION are required when SAMPLE_SOURCE=replay")
		}
	case "":
		return fmt.Errorf("SAMPLE_SOURCE is required")
	default:
		return fmt.Errorf("SAMPLE_SOURCE must be mock, serial, imu or replay, got %q", c.SampleSource)
	}

	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL is required")
	}
	if c.SmoothingFactor <= 0 || c.SmoothingFactor > 1 {
		return fmt.Errorf("SMOOTHING_FACTOR must be in (0, 1], got %v", c.SmoothingFactor)
	}
	if c.PitchClampDeg <= 0 || c.PitchClampDeg >= 90 {
		return fmt.Errorf("PITCH_CLAMP_DEG must be in (0, 90), got %v", c.PitchClampDeg)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("ORIENTATION_VIEWPORT_WIDTH and ORIENTATION_VIEWPORT_HEIGHT are required")
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("FRAME_INTERVAL is required")
	}
	if c.CameraFOVDeg <= 0 || c.CameraFOVDeg >= 180 {
		return fmt.Errorf("CAMERA_FOV_DEG must be in (0, 180), got %v", c.CameraFOVDeg)
	}
	if c.ConsoleLogInterval == 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL is required")
	}
	if c.RecordingDB != "" && c.RecordingSession == "" {
		return fmt.Errorf("RECORDING_SESSION is required when RECORDING_DB is set")
	}
	return nil
}

// Stabilizer converts the stabilizer keys to an orientation.Config.
func (c *Config) Stabilizer() orientation.Config {
	return orientation.Config{
		SmoothingFactor: c.SmoothingFactor,
		PitchClamp:      c.PitchClampDeg * math.Pi / 180,
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c *Config) SampleEvery() time.Duration  { return ms(c.SampleInterval) }
func (c *Config) FrameEvery() time.Duration   { return ms(c.FrameInterval) }
func (c *Config) ConsoleEvery() time.Duration { return ms(c.ConsoleLogInterval) }
func (c *Config) DisplayEvery() time.Duration { return ms(c.DisplayUpdateInterval) }

// InitGlobal initializes the global configuration from file. Only the
// first call does any work.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
