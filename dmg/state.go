package dmg

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/valerio/go-dmg/dmg/audio"
	"github.com/valerio/go-dmg/dmg/cpu"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/serial"
	"github.com/valerio/go-dmg/dmg/video"
)

// stateVersion guards against loading snapshots from an incompatible
// build; bump on any layout change.
const stateVersion = 1

// snapshot is the full machine image. ROM bytes are not included: a
// snapshot only makes sense with the same cartridge loaded.
type snapshot struct {
	Version int

	CPU    cpu.Registers
	Memory memory.State
	PPU    video.State
	APU    audio.State
	Serial serial.State

	Frames       uint64
	Instructions uint64
}

// SaveState serializes the complete machine. Restoring the bytes with
// LoadState reproduces execution exactly, given the same cartridge and
// the same input stream.
func (d *DMG) SaveState() ([]byte, error) {
	var buf bytes.Buffer
	snap := snapshot{
		Version:      stateVersion,
		CPU:          d.cpu.Snapshot(),
		Memory:       d.mmu.SaveState(),
		PPU:          d.ppu.SaveState(),
		APU:          d.apu.SaveState(),
		Serial:       d.serial.SaveState(),
		Frames:       d.frames,
		Instructions: d.instructions,
	}
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadState restores a machine image created by SaveState.
func (d *DMG) LoadState(data []byte) error {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return fmt.Errorf("decoding state: %w", err)
	}
	if snap.Version != stateVersion {
		return fmt.Errorf("state version %d not supported", snap.Version)
	}

	d.cpu.Restore(snap.CPU)
	if err := d.mmu.RestoreState(snap.Memory); err != nil {
		return err
	}
	d.ppu.RestoreState(snap.PPU)
	d.apu.RestoreState(snap.APU)
	d.serial.RestoreState(snap.Serial)
	d.frames = snap.Frames
	d.instructions = snap.Instructions
	return nil
}
