// Package dmg wires the emulation core together: cartridge, MMU, CPU,
// PPU, APU, timer and joypad, driven one frame at a time.
package dmg

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/audio"
	"github.com/valerio/go-dmg/dmg/cpu"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/serial"
	"github.com/valerio/go-dmg/dmg/video"
)

// CyclesPerFrame is one full LCD refresh: 154 scanlines of 456 T-cycles.
const CyclesPerFrame = 70224

// ErrNoFrame is the advisory returned when software keeps the LCD off
// (or otherwise never reaches VBlank) for a whole frame's budget. The
// machine state is fine; the previous framebuffer contents are returned.
var ErrNoFrame = errors.New("LCD off, no frame produced")

// Bus is the CPU's connection to the machine. Every Tick drives the
// timer and serial port (through the MMU) and the PPU in lockstep,
// which is what gives memory accesses their hardware ordering.
type Bus struct {
	mmu *memory.MMU
	ppu *video.PPU
}

func (b *Bus) Read(address uint16) byte         { return b.mmu.Read(address) }
func (b *Bus) Write(address uint16, value byte) { b.mmu.Write(address, value) }

func (b *Bus) Tick(cycles int) {
	b.mmu.Tick(cycles)
	b.ppu.Tick(cycles)
}

// DMG is a complete Game Boy. Frames come out of RunFrame; input goes
// in through Press and Release; audio flows to the injected sink.
type DMG struct {
	mmu    *memory.MMU
	cpu    *cpu.CPU
	ppu    *video.PPU
	apu    *audio.APU
	serial *serial.LogSink
	bus    *Bus

	battery BatterySink
	romPath string

	frames       uint64
	instructions uint64
}

// Option configures a DMG at construction.
type Option func(*DMG)

// WithAudioSink routes generated samples to the given sink instead of
// discarding them.
func WithAudioSink(sink audio.Sink) Option {
	return func(d *DMG) { d.apu = audio.New(sink) }
}

// WithBattery selects where battery-backed save RAM is persisted.
func WithBattery(battery BatterySink) Option {
	return func(d *DMG) { d.battery = battery }
}

// New creates a machine with no cartridge inserted.
func New(opts ...Option) *DMG {
	d := &DMG{battery: FileBattery{}}
	for _, opt := range opts {
		opt(d)
	}
	if d.apu == nil {
		d.apu = audio.New(nil)
	}
	d.wire(memory.New())
	return d
}

// NewWithFile creates a machine and loads the ROM at path into it.
func NewWithFile(path string, opts ...Option) (*DMG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ROM: %w", err)
	}
	d := New(opts...)
	if err := d.LoadROM(data, path); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadROM inserts a cartridge built from the ROM image. The path is
// only used as the battery-save key and may be empty.
func (d *DMG) LoadROM(data []byte, path string) error {
	cart := memory.NewCartridgeWithData(data)
	d.romPath = path
	d.wire(memory.NewWithCartridge(cart))

	if cart.HasBattery() && d.battery != nil {
		save, err := d.battery.Load(path)
		switch {
		case errors.Is(err, ErrNoSave):
		case err != nil:
			slog.Warn("Could not load save RAM, starting blank", "error", err)
		default:
			if err := cart.RestoreRAM(save); err != nil {
				slog.Warn("Save RAM rejected, starting blank", "error", err)
			}
		}
	}
	return nil
}

// wire rebuilds the component graph around a fresh MMU.
func (d *DMG) wire(mmu *memory.MMU) {
	d.mmu = mmu
	d.ppu = video.New(mmu)
	mmu.PPU = d.ppu
	mmu.APU = d.apu
	d.apu.Reset()
	d.serial = serial.NewLogSink(func() {
		mmu.RequestInterrupt(addr.SerialInterrupt)
	})
	mmu.SetSerial(d.serial)
	d.bus = &Bus{mmu: mmu, ppu: d.ppu}
	d.cpu = cpu.New(d.bus)
	d.frames = 0
	d.instructions = 0
}

// RunFrame executes until the PPU signals VBlank, then drains one
// frame of audio and returns the framebuffer.
//
// Two error cases, both recoverable: an *cpu.IllegalOpcodeError if the
// CPU hit an illegal opcode during the frame (the frame still
// completes; the CPU stays stalled), and ErrNoFrame if no VBlank
// arrived within twice the frame budget.
func (d *DMG) RunFrame() (*video.FrameBuffer, error) {
	d.ppu.ClearFrameReady()

	var fault error
	cycles := 0
	for !d.ppu.FrameReady() && cycles < 2*CyclesPerFrame {
		n, err := d.cpu.Step()
		if err != nil && fault == nil {
			fault = err
		}
		cycles += n
		d.instructions++
	}

	d.apu.EndFrame()
	d.frames++

	if !d.ppu.FrameReady() && fault == nil {
		return d.ppu.FrameBuffer(), ErrNoFrame
	}
	return d.ppu.FrameBuffer(), fault
}

// Press pushes a button down.
func (d *DMG) Press(b memory.Button) { d.mmu.Joypad.Press(b) }

// Release lets a button up.
func (d *DMG) Release(b memory.Button) { d.mmu.Joypad.Release(b) }

// Save flushes battery-backed RAM to the configured sink.
func (d *DMG) Save() error {
	cart := d.mmu.Cartridge()
	if !cart.HasBattery() || d.battery == nil {
		return nil
	}
	return d.battery.Store(d.romPath, cart.DumpRAM())
}

// Close shuts the machine down, persisting save RAM.
func (d *DMG) Close() error {
	return d.Save()
}

// FrameBuffer returns the current frame.
func (d *DMG) FrameBuffer() *video.FrameBuffer { return d.ppu.FrameBuffer() }

// FrameCount returns frames completed since power-on.
func (d *DMG) FrameCount() uint64 { return d.frames }

// InstructionCount returns instructions executed since power-on.
func (d *DMG) InstructionCount() uint64 { return d.instructions }

// CPU exposes the processor for debugging and tests.
func (d *DMG) CPU() *cpu.CPU { return d.cpu }

// MMU exposes the memory unit for debugging and tests.
func (d *DMG) MMU() *memory.MMU { return d.mmu }

// PPU exposes the video unit for debugging and tests.
func (d *DMG) PPU() *video.PPU { return d.ppu }

// APU exposes the audio unit for debugging and tests.
func (d *DMG) APU() *audio.APU { return d.apu }
