package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/valerio/go-dmg/dmg"
	"github.com/valerio/go-dmg/dmg/audio"
	"github.com/valerio/go-dmg/dmg/backend"
	"github.com/valerio/go-dmg/dmg/backend/sdl2"
	"github.com/valerio/go-dmg/dmg/backend/terminal"
	"github.com/valerio/go-dmg/dmg/memory"
)

// frameDuration is the DMG refresh period, ~59.73 Hz.
const frameDuration = time.Second * dmg.CyclesPerFrame / 4194304

func main() {
	app := cli.NewApp()
	app.Name = "dmg"
	app.Description = "A monochrome Game Boy emulator"
	app.Usage = "dmg [options] <ROM file>"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Presentation backend: terminal or sdl2",
			Value: "terminal",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window scale factor (sdl2 backend)",
			Value: 3,
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without any display",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode",
			Value: 0,
		},
		cli.IntFlag{
			Name:  "digest-interval",
			Usage: "Log a frame digest every N frames in headless mode (0 = off)",
			Value: 0,
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("emulator exited with error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() == 0 {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
		romPath = c.Args().First()
	}

	if c.Bool("headless") {
		return runHeadless(romPath, c.Int("frames"), c.Int("digest-interval"))
	}

	var be backend.Backend
	var sink audio.Sink
	switch name := c.String("backend"); name {
	case "terminal":
		be = terminal.New()
	case "sdl2":
		s := sdl2.New()
		be = s
		sink = s
	default:
		return fmt.Errorf("unknown backend %q", name)
	}

	machine, err := dmg.NewWithFile(romPath, dmg.WithAudioSink(sink))
	if err != nil {
		return err
	}
	defer machine.Close()

	quit := false
	err = be.Init(backend.Config{
		Title: "dmg",
		Scale: c.Int("scale"),
		OnButton: func(b memory.Button, pressed bool) {
			if pressed {
				machine.Press(b)
			} else {
				machine.Release(b)
			}
		},
		OnQuit: func() { quit = true },
	})
	if err != nil {
		return err
	}
	defer be.Cleanup()

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for !quit {
		frame, err := machine.RunFrame()
		if err != nil && !errors.Is(err, dmg.ErrNoFrame) {
			slog.Warn("emulation fault", "error", err)
		}
		if err := be.Update(frame); err != nil {
			return err
		}
		<-ticker.C
	}
	return nil
}

func runHeadless(romPath string, frames, digestInterval int) error {
	if frames <= 0 {
		return errors.New("headless mode requires --frames with a positive value")
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	machine, err := dmg.NewWithFile(romPath)
	if err != nil {
		return err
	}
	defer machine.Close()

	be := backend.NewHeadless(digestInterval)
	for i := 0; i < frames; i++ {
		frame, err := machine.RunFrame()
		if err != nil && !errors.Is(err, dmg.ErrNoFrame) {
			slog.Warn("emulation fault", "frame", i, "error", err,
				"at", machine.CPU().Disassemble(machine.CPU().PC()))
		}
		if err := be.Update(frame); err != nil {
			return err
		}
	}
	slog.Info("headless run complete", "frames", frames,
		"instructions", machine.InstructionCount())
	return nil
}
