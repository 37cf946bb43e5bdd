// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/relabs-tech/photosphere/internal/app"
	"github.com/relabs-tech/photosphere/internal/config"
)

func main() {
	log.Println("starting photosphere OLED display")

	if err := config.InitGlobal("photosphere_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Println("Note: the display needs I2C access (sudo ./display)")

	if err := app.RunDisplay(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
