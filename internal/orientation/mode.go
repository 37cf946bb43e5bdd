// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"strings"
)

// Mode selects which sensor tilt axis drives camera pitch. It is fixed
// when a session starts.
type Mode int

const (
	// Portrait: pitch follows beta, roll follows gamma.
	Portrait Mode = iota
	// Landscape: pitch follows gamma, roll follows beta.
	Landscape
)

// ModeForViewport picks Landscape when the viewport is wider than tall.
func ModeForViewport(width, height int) Mode {
	if width > height {
		return Landscape
	}
	return Portrait
}

func (m Mode) String() string {
	switch m {
	case Portrait:
		return "portrait"
	case Landscape:
		return "landscape"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "portrait" or "landscape", case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "portrait":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	default:
		return Portrait, fmt.Errorf("unknown orientation mode %q", s)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	if m != Portrait && m != Landscape {
		return nil, fmt.Errorf("invalid orientation mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
