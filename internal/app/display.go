// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/photosphere/internal/config"
	"github.com/relabs-tech/photosphere/internal/viewer"
)

const (
	oledWidth  = 128
	oledHeight = 64
)

// addrBus sends every transaction to addr. The ssd1306 driver assumes
// 0x3C; boards strapped to 0x3D need the override.
type addrBus struct {
	i2c.Bus
	addr uint16
}

func (b *addrBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

// displayState holds the latest frame for the OLED loop.
type displayState struct {
	mu    sync.RWMutex
	frame viewer.Frame
	have  bool
	at    time.Time
}

func (d *displayState) set(f viewer.Frame) {
	d.mu.Lock()
	d.frame, d.have, d.at = f, true, time.Now()
	d.mu.Unlock()
}

func (d *displayState) snapshot() (viewer.Frame, bool, time.Time) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.frame, d.have, d.at
}

// RunDisplay shows the camera pose from TOPIC_CAMERA on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()
	ctx, stop := signalContext()
	defer stop()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(&addrBus{Bus: bus, addr: uint16(cfg.DisplayI2CAddr)}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Printf("display: initialized at 0x%02X", uint16(cfg.DisplayI2CAddr))

	if err := dev.Draw(dev.Bounds(), splashImage(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := connectMQTT("display", cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	state := &displayState{}
	token := client.Subscribe(cfg.TopicCamera, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f viewer.Frame
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("display: frame unmarshal error: %v", err)
			return
		}
		state.set(f)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicCamera)

	ticker := time.NewTicker(cfg.DisplayEvery())
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			f, have, at := state.snapshot()
			stale := have && now.Sub(at) > 2*time.Second
			if err := dev.Draw(dev.Bounds(), poseImage(f, have, stale), image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, text string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

// poseImage renders yaw, pitch and roll in degrees.
func poseImage(f viewer.Frame, have, stale bool) *image1bit.VerticalLSB {
	img, d := newCanvas()

	if !have {
		drawLine(d, 5, 26, "Photosphere")
		drawLine(d, 5, 43, "waiting for")
		drawLine(d, 5, 56, "camera...")
		return img
	}

	title := "Camera"
	if stale {
		title = "Camera (stale)"
	}
	drawLine(d, 0, 12, title)
	drawLine(d, 0, 28, fmt.Sprintf("Yaw:   %7.1f", f.Pose.Yaw))
	drawLine(d, 0, 42, fmt.Sprintf("Pitch: %7.1f", f.Pose.Pitch))
	drawLine(d, 0, 56, fmt.Sprintf("Roll:  %7.1f", f.Pose.Roll))
	return img
}

func splashImage() *image1bit.VerticalLSB {
	img, d := newCanvas()
	drawLine(d, 10, 26, "Photosphere")
	drawLine(d, 5, 43, "Look around")
	return img
}
