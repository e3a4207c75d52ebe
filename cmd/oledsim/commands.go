// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"image"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/oled/internal/api"
	"github.com/GermanBionicSystems/oled/internal/config"
	"github.com/GermanBionicSystems/oled/internal/render"
	"github.com/GermanBionicSystems/oled/ssd1306"
	"github.com/GermanBionicSystems/oled/stream"
	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"
)

func newCommands() []*command {
	textCmd := flag.NewFlagSet("text", flag.ExitOnError)
	textX := textCmd.Int("x", 0, "Left column")
	textY := textCmd.Int("y", 0, "Top row")
	textInvert := textCmd.Bool("invert", false, "Invert the display")

	bannerCmd := flag.NewFlagSet("banner", flag.ExitOnError)
	bannerFace := bannerCmd.String("face", render.Regular, "Font face: basic, bitmap or regular")
	bannerSize := bannerCmd.Float64("size", 20, "Font size of the regular face")

	demoCmd := flag.NewFlagSet("demo", flag.ExitOnError)
	demoDelay := demoCmd.Duration("delay", 500*time.Millisecond, "Delay between steps")

	return []*command{
		{
			name:  "demo",
			help:  "Show text, rectangles, contrast, inversion and power changes",
			flags: demoCmd,
			run: func(c *config.Config, _ []string) error {
				return withDisplay(c, func(d *display) error { return demo(d, *demoDelay) })
			},
		},
		{
			name:  "text",
			args:  "TEXT...",
			help:  "Draw text with the built-in 5x7 font",
			flags: textCmd,
			run: func(c *config.Config, args []string) error {
				return withDisplay(c, func(d *display) error {
					d.dev.DrawText(*textX, *textY, strings.Join(args, " "))
					if err := d.dev.Flush(); err != nil {
						return err
					}
					return d.dev.Invert(*textInvert)
				})
			},
		},
		{
			name:  "console",
			help:  "Show the lines read from stdin as a scrolling log",
			flags: flag.NewFlagSet("console", flag.ExitOnError),
			run: func(c *config.Config, _ []string) error {
				return withDisplay(c, func(d *display) error {
					con := ssd1306.NewConsole(d.dev)
					s := bufio.NewScanner(os.Stdin)
					for s.Scan() {
						if err := con.Println(s.Text()); err != nil {
							return err
						}
						d.preview()
					}
					return s.Err()
				})
			},
		},
		{
			name:  "banner",
			args:  "TEXT...",
			help:  "Draw centered text with a vector or bitmap font",
			flags: bannerCmd,
			run: func(c *config.Config, args []string) error {
				face, err := render.Face(*bannerFace, *bannerSize)
				if err != nil {
					return err
				}
				return withDisplay(c, func(d *display) error {
					img := render.Banner(c.Width, c.Height, strings.Join(args, " "), face)
					return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
				})
			},
		},
		{
			name:  "serve",
			help:  "Expose the display over HTTP",
			flags: flag.NewFlagSet("serve", flag.ExitOnError),
			run:   serve,
		},
		{
			name:  "version",
			help:  "Show the version number",
			flags: flag.NewFlagSet("version", flag.ExitOnError),
		},
	}
}

func withDisplay(c *config.Config, f func(d *display) error) error {
	d, err := openDisplay(c)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := f(d); err != nil {
		return err
	}
	d.preview()
	return nil
}

func demo(d *display, delay time.Duration) error {
	step := func(name string, f func() error) error {
		logrus.Debugf("Demo: %s", name)
		if err := f(); err != nil {
			return err
		}
		d.preview()
		time.Sleep(delay)
		return nil
	}
	dev := d.dev
	if err := step("text", func() error {
		dev.DrawText(0, 0, "Hello from periph!")
		dev.DrawText(0, 16, " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ")
		return dev.Flush()
	}); err != nil {
		return err
	}
	if err := step("rectangles", func() error {
		b := dev.Bounds()
		for i := 0; 2*i < b.Dy()/2; i += 4 {
			dev.FillRect(i, 40+i/2, b.Dx()-2*i, b.Dy()-40-i, i%8 == 0)
		}
		return dev.Flush()
	}); err != nil {
		return err
	}
	for _, level := range []byte{0x00, 0x40, 0xFF, 0xCF} {
		level := level
		if err := step("contrast", func() error { return dev.SetContrast(level) }); err != nil {
			return err
		}
	}
	for _, on := range []bool{true, false} {
		on := on
		if err := step("invert", func() error { return dev.Invert(on) }); err != nil {
			return err
		}
	}
	for _, on := range []bool{false, true} {
		on := on
		if err := step("power", func() error { return dev.SetPower(on) }); err != nil {
			return err
		}
	}
	return nil
}

func serve(c *config.Config, _ []string) error {
	d, err := openDisplay(c)
	if err != nil {
		return err
	}
	defer d.Close()
	sink := stream.New(d.dev.Bounds(), &stream.Opts{})
	sink.Update(d.view())
	s := api.New(d.dev, d.view(), func() {
		d.preview()
		sink.Update(d.view())
	})
	s.Mount("stream", sink)
	w := logrus.StandardLogger().Writer()
	defer w.Close()
	server := &http.Server{
		Addr:         c.Listen,
		Handler:      handlers.LoggingHandler(w, s.Handler()),
		ReadTimeout:  time.Second * 240,
		WriteTimeout: time.Second * 240,
		IdleTimeout:  time.Second * 240,
	}
	go func() {
		logrus.Infof("Listening on %s", c.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Error(err)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	sig := <-ch
	logrus.Infof("Received signal: %v", sig)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = sink.Halt()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	return s.Do(func(dev *ssd1306.Dev) error { return dev.Halt() })
}
