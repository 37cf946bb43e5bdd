// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"fmt"
	"strings"
)

// Permission is the outcome of asking the user for sensor access.
type Permission int

const (
	Denied Permission = iota
	Granted
)

func (p Permission) String() string {
	if p == Granted {
		return "granted"
	}
	return "denied"
}

// ParsePermission accepts "granted" or "denied". Anything else is denied.
func ParsePermission(s string) Permission {
	if strings.EqualFold(strings.TrimSpace(s), "granted") {
		return Granted
	}
	return Denied
}

// Permitter asks for access to orientation sensors.
type Permitter interface {
	RequestPermission(ctx context.Context) (Permission, error)
}

// PermitterFunc adapts a function to Permitter.
type PermitterFunc func(ctx context.Context) (Permission, error)

func (f PermitterFunc) RequestPermission(ctx context.Context) (Permission, error) {
	return f(ctx)
}

// StaticPermission always answers p. Hosts whose client already decided
// (a browser prompt, a headless sensor) use it.
func StaticPermission(p Permission) Permitter {
	return PermitterFunc(func(ctx context.Context) (Permission, error) {
		if err := ctx.Err(); err != nil {
			return Denied, fmt.Errorf("permission request: %w", err)
		}
		return p, nil
	})
}

// AlwaysGranted is used where no prompt exists.
func AlwaysGranted() Permitter { return StaticPermission(Granted) }
