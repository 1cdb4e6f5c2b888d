package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/valerio/go-dmg/dmg"
	"github.com/valerio/go-dmg/dmg/backend"
	"github.com/valerio/go-dmg/dmg/backend/terminal"
	"github.com/valerio/go-dmg/dmg/memory"
)

// Thin entry point that runs a ROM in the terminal. The full option
// surface lives in cmd/dmg.
func main() {
	app := cli.NewApp()
	app.Name = "go-dmg"
	app.Description = "A monochrome Game Boy emulator"
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("emulator exited with error", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("usage: go-dmg <ROM file>")
	}

	machine, err := dmg.NewWithFile(c.Args().First())
	if err != nil {
		return err
	}
	defer machine.Close()

	be := terminal.New()
	quit := false
	err = be.Init(backend.Config{
		Title: "go-dmg",
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

	ticker := time.NewTicker(time.Second * dmg.CyclesPerFrame / 4194304)
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
