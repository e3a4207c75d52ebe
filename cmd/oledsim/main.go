// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// oledsim drives an SSD1306 panel over a bit-banged I²C bus, simulated or
// real.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GermanBionicSystems/oled/internal/config"
	"github.com/GermanBionicSystems/oled/internal/version"
	"github.com/sirupsen/logrus"
)

const configSuffix = "oledsim"

type command struct {
	name  string
	args  string
	help  string
	flags *flag.FlagSet
	run   func(c *config.Config, args []string) error
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	mainCommand := filepath.Base(os.Args[0])

	debugMode := flag.Bool("d", false, "Enable debug mode")
	defaultConfigDir := "./." + configSuffix
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		defaultConfigDir = filepath.Join(userConfigDir, configSuffix)
	}
	configDir := flag.String("c", defaultConfigDir, "Location of oledsim config folder")

	commands := newCommands()
	flag.Usage = func() {
		fmt.Printf("\nUsage: %s [OPTIONS] [COMMAND]\n", mainCommand)
		fmt.Printf("\nDrive an SSD1306 OLED panel\n")
		fmt.Printf("\nOptions:\n")
		flag.PrintDefaults()
		fmt.Printf("\nCommands:\n")
		for _, c := range commands {
			fmt.Printf("  %-9s %s\n", c.name, c.help)
		}
		fmt.Printf("\nRun '%s COMMAND --help' for more information on a command.\n", mainCommand)
	}
	for _, c := range commands {
		c := c
		c.flags.Usage = func() {
			fmt.Printf("\nUsage: %s %s [OPTIONS] %s\n", mainCommand, c.name, c.args)
			fmt.Printf("\n%s\n", c.help)
			c.flags.PrintDefaults()
		}
	}

	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	var cmd *command
	for _, c := range commands {
		if c.name == flag.Arg(0) {
			cmd = c
		}
	}
	if cmd == nil {
		fmt.Printf("\n%s is not an oledsim command\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
	_ = cmd.flags.Parse(flag.Args()[1:])
	if cmd.args == "" && cmd.flags.NArg() > 0 {
		fmt.Printf("\n\"%s %s\" accepts no arguments\n", mainCommand, cmd.name)
		cmd.flags.Usage()
		os.Exit(1)
	}

	if *debugMode {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
		logrus.Printf("Debug mode activated")
	}

	if cmd.name == "version" {
		fmt.Printf("Version %s\n", version.AppVersion.String())
		return
	}
	c, err := config.Load(*configDir)
	if err != nil {
		logrus.Fatalf("Unable to load config: %v", err)
	}
	if err := cmd.run(c, cmd.flags.Args()); err != nil {
		logrus.Fatalf("%s: %v", cmd.name, err)
	}
}
