// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/photosphere/internal/config"
	"github.com/relabs-tech/photosphere/internal/viewer"
)

// frameMsg carries a camera frame from MQTT into the terminal UI.
type frameMsg viewer.Frame

// consoleModel is a live view of the camera published by a viewer.
type consoleModel struct {
	topic    string
	frame    viewer.Frame
	have     bool
	received int
	lastAt   time.Time
	paused   bool
}

func newConsoleModel(topic string) consoleModel {
	return consoleModel{topic: topic}
}

// Init implements tea.Model interface.
func (m consoleModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model interface.
func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeySpace:
			m.paused = !m.paused
		case tea.KeyRunes:
			if string(msg.Runes) == "q" {
				return m, tea.Quit
			}
		}
	case frameMsg:
		m.received++
		if !m.paused {
			m.frame = viewer.Frame(msg)
			m.have = true
			m.lastAt = time.Now()
		}
	}
	return m, nil
}

// View implements tea.Model interface.
func (m consoleModel) View() string {
	var b strings.Builder

	b.WriteString("photosphere camera\n")
	b.WriteString("==================\n\n")
	b.WriteString(fmt.Sprintf("Topic: %s\n", m.topic))

	if !m.have {
		b.WriteString("\nwaiting for frames...\n")
	} else {
		f := m.frame
		q := f.Quaternion.XYZW()
		b.WriteString(fmt.Sprintf("Frame: #%d  (%d received)\n\n", f.Seq, m.received))
		b.WriteString(fmt.Sprintf("ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f\n", f.Pose.Roll, f.Pose.Pitch, f.Pose.Yaw))
		b.WriteString(fmt.Sprintf("quat  x=%6.3f y=%6.3f z=%6.3f w=%6.3f\n", q[0], q[1], q[2], q[3]))
		b.WriteString(fmt.Sprintf("fwd   x=%6.3f y=%6.3f z=%6.3f\n", f.Forward[0], f.Forward[1], f.Forward[2]))
		b.WriteString(fmt.Sprintf("view  %dx%d  aspect %.2f\n", f.Width, f.Height, f.Aspect))
		b.WriteString("\n" + horizon(f.Pose.Pitch, f.Pose.Roll) + "\n")
	}

	if m.paused {
		b.WriteString("\n[paused]")
	}
	b.WriteString("\nspace: pause  q: quit\n")
	return b.String()
}

// horizon draws a one-line artificial horizon: the marker slides with
// roll, the bar fills with pitch.
func horizon(pitch, roll float64) string {
	const width = 41
	centre := width / 2
	pos := centre + int(roll/90*float64(centre))
	pos = max(0, min(width-1, pos))

	line := []rune(strings.Repeat("-", width))
	line[centre] = '+'
	line[pos] = 'o'

	fill := int(pitch / 90 * 10)
	bar := strings.Repeat("^", max(0, fill)) + strings.Repeat("v", max(0, -fill))
	return string(line) + "  " + bar
}

// RunConsole shows frames from TOPIC_CAMERA in the terminal until the
// user quits.
func RunConsole() error {
	cfg := config.Get()

	client, err := connectMQTT("console", cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	p := tea.NewProgram(newConsoleModel(cfg.TopicCamera), tea.WithAltScreen())

	token := client.Subscribe(cfg.TopicCamera, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f viewer.Frame
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: frame unmarshal error: %v", err)
			return
		}
		p.Send(frameMsg(f))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicCamera)

	_, err = p.Run()
	log.Println("console: shutting down")
	return err
}
