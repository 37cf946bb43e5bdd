// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"math"
)

// RawSample is one device-orientation event in degrees, device frame.
// Any field may be absent (nil); absent and non-finite values read as 0.
//
//	alpha: compass heading, [0, 360)
//	beta:  front-back tilt, [-180, 180]
//	gamma: left-right tilt, [-90, 90]
type RawSample struct {
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

// NewSample builds a sample with all three fields present.
func NewSample(alpha, beta, gamma float64) RawSample {
	return RawSample{Alpha: &alpha, Beta: &beta, Gamma: &gamma}
}

// Angles returns alpha, beta and gamma with missing fields set to 0.
func (s RawSample) Angles() (alpha, beta, gamma float64) {
	return value(s.Alpha), value(s.Beta), value(s.Gamma)
}

func value(p *float64) float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0
	}
	return *p
}

func (s RawSample) String() string {
	return fmt.Sprintf("alpha=%s beta=%s gamma=%s", field(s.Alpha), field(s.Beta), field(s.Gamma))
}

func field(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *p)
}
