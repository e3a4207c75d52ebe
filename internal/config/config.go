// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the oledsim configuration file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GermanBionicSystems/oled/esp32c3"
	"github.com/GermanBionicSystems/oled/ssd1306"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// Filename is the name of the configuration file in the config folder.
const Filename = "oledsim.yaml"

// Bus kinds.
const (
	Sim      = "sim"
	HostGPIO = "host-gpio"
	HostI2C  = "host-i2c"
)

//go:embed default.yaml
var DefaultFile []byte

// Config is the content of the configuration file.
type Config struct {
	Bus       string `yaml:"bus"`
	SCL       string `yaml:"scl"`
	SDA       string `yaml:"sda"`
	I2C       string `yaml:"i2c"`
	Frequency string `yaml:"frequency"`
	CPU       string `yaml:"cpu"`
	Address   uint16 `yaml:"address"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Contrast  uint8  `yaml:"contrast"`
	Preview   bool   `yaml:"preview"`
	Listen    string `yaml:"listen"`
}

// Load reads the configuration file in dir. The folder and a default file
// are created when missing.
func Load(dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0770); err != nil {
		return nil, fmt.Errorf("config: unable to create config folder: %w", err)
	}
	path := filepath.Join(dir, Filename)
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logrus.Infof("Create default config file: %s", path)
		if err = os.WriteFile(path, DefaultFile, 0660); err != nil {
			return nil, fmt.Errorf("config: unable to save config file: %w", err)
		}
		raw = DefaultFile
	} else if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a configuration. Missing keys keep their
// default value.
func Parse(raw []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(DefaultFile, c); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("unable to interpret config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the values.
func (c *Config) Validate() error {
	switch c.Bus {
	case Sim:
		if _, _, err := c.Pads(); err != nil {
			return err
		}
	case HostGPIO:
		if c.SCL == "" || c.SDA == "" {
			return errors.New("scl and sda are required")
		}
	case HostI2C:
	default:
		return fmt.Errorf("unknown bus %q", c.Bus)
	}
	if _, err := c.BusFrequency(); err != nil {
		return err
	}
	if _, err := c.CPUFrequency(); err != nil {
		return err
	}
	if c.Address != ssd1306.Addr && c.Address != ssd1306.AddrAlt {
		return fmt.Errorf("invalid address %#x", c.Address)
	}
	return nil
}

// BusFrequency returns the parsed bus frequency.
func (c *Config) BusFrequency() (physic.Frequency, error) {
	return parseFrequency("frequency", c.Frequency)
}

// CPUFrequency returns the parsed CPU clock.
func (c *Config) CPUFrequency() (physic.Frequency, error) {
	return parseFrequency("cpu", c.CPU)
}

// Pads returns the ESP32-C3 pad numbers of scl and sda.
func (c *Config) Pads() (scl, sda int, err error) {
	if scl, err = pad(c.SCL); err != nil {
		return 0, 0, fmt.Errorf("scl: %w", err)
	}
	if sda, err = pad(c.SDA); err != nil {
		return 0, 0, fmt.Errorf("sda: %w", err)
	}
	if scl == sda {
		return 0, 0, errors.New("scl and sda must be different pads")
	}
	return scl, sda, nil
}

// Opts returns the display options.
func (c *Config) Opts() *ssd1306.Opts {
	o := ssd1306.DefaultOpts
	o.W = c.Width
	o.H = c.Height
	o.Addr = c.Address
	o.Sequential = c.Height == 32
	return &o
}

func pad(name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "GPIO"))
	if err != nil || n < 0 || n >= esp32c3.NumGPIO {
		return 0, fmt.Errorf("invalid pad %q", name)
	}
	return n, nil
}

func parseFrequency(key, s string) (physic.Frequency, error) {
	var f physic.Frequency
	if err := f.Set(s); err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return f, nil
}
