package serial

import (
	"log/slog"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
)

// LogSink is a stand-in for the link cable: outgoing bytes are collected
// into lines and logged as text. There is no peer, so every transfer
// receives 0xFF. Test ROMs report results over serial, which makes this
// sink useful well beyond debugging.
type LogSink struct {
	irqHandler func()
	sb, sc     byte

	transferActive bool
	countdown      int

	line []byte
}

// transferCycles is roughly one byte at the DMG internal clock, 8 bits
// at 8192 Hz.
const transferCycles = 4096

// NewLogSink creates a logging serial device. The callback is invoked on
// transfer completion and should raise the serial interrupt.
func NewLogSink(irq func()) *LogSink {
	return &LogSink{irqHandler: irq, sb: 0xFF}
}

func (s *LogSink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc | 0x7E
	}
	return 0xFF
}

func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value
		// Start bit with internal clock begins a transfer; with external
		// clock nothing drives the line, so the transfer never completes.
		if bit.IsSet(7, value) && bit.IsSet(0, value) {
			s.transferActive = true
			s.countdown = transferCycles
		}
	}
}

// State mirrors LogSink for serialization, so an in-flight transfer
// survives a snapshot.
type State struct {
	SB, SC         byte
	TransferActive bool
	Countdown      int
	Line           []byte
}

// SaveState captures the sink's registers and transfer progress.
func (s *LogSink) SaveState() State {
	return State{
		SB: s.sb, SC: s.sc,
		TransferActive: s.transferActive,
		Countdown:      s.countdown,
		Line:           append([]byte(nil), s.line...),
	}
}

// RestoreState overwrites the sink from a snapshot.
func (s *LogSink) RestoreState(st State) {
	s.sb, s.sc = st.SB, st.SC
	s.transferActive = st.TransferActive
	s.countdown = st.Countdown
	s.line = append(s.line[:0], st.Line...)
}

// Tick advances an active transfer and completes it when its time is up.
func (s *LogSink) Tick(cycles int) {
	if !s.transferActive {
		return
	}
	s.countdown -= cycles
	if s.countdown > 0 {
		return
	}
	s.transferActive = false

	out := s.sb
	s.sb = 0xFF // no peer, the shifted-in byte is all 1s
	s.sc = bit.Reset(7, s.sc)

	if out == '\n' {
		slog.Debug("serial", "line", string(s.line))
		s.line = s.line[:0]
	} else if out >= 0x20 && out < 0x7F {
		s.line = append(s.line, out)
	}

	if s.irqHandler != nil {
		s.irqHandler()
	}
}
