package memory

import "time"

// MBC is a cartridge memory bank controller. Reads and writes cover the
// whole cartridge-visible space: ROM at 0x0000-0x7FFF (writes are control
// registers) and external RAM at 0xA000-0xBFFF.
type MBC interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
	// RAM exposes the external RAM backing store for battery persistence.
	RAM() []byte
	// SaveState and RestoreState carry the controller's register state
	// across a snapshot; RAM contents travel separately.
	SaveState() MBCState
	RestoreState(s MBCState)
}

// MBCState is the serializable controller state shared by all chip
// types; fields a chip doesn't use stay zero, the same way the register
// file has holes.
type MBCState struct {
	ROMBank    uint16
	RAMBank    uint8
	BankLow    uint8
	BankUpper  uint8
	Mode       uint8
	RAMEnabled bool

	RTC        [5]uint8
	RTCLatched [5]uint8
	RTCBase    time.Time
	LatchArm   bool
}

// readBanked reads from rom at bank*0x4000 + offset, wrapping banks that
// exceed the image size the way the address lines would.
func readBanked(rom []byte, bank int, address uint16) uint8 {
	if len(rom) == 0 {
		return 0xFF
	}
	offset := bank*0x4000 + int(address-0x4000)
	if offset >= len(rom) {
		offset %= len(rom)
	}
	return rom[offset]
}

// NoMBC is a plain 32 KiB ROM with no banking hardware. A single 8 KiB
// RAM bank is always mapped at 0xA000-0xBFFF, whatever the header says.
type NoMBC struct {
	rom []uint8
	ram []uint8
}

// NewNoMBC creates a controller-less cartridge mapping.
func NewNoMBC(rom []uint8) *NoMBC {
	return &NoMBC{rom: rom, ram: make([]uint8, 0x2000)}
}

func (m *NoMBC) Read(address uint16) uint8 {
	switch {
	case address <= 0x7FFF:
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
		return 0xFF
	case address >= 0xA000 && address <= 0xBFFF:
		return m.ram[address-0xA000]
	}
	return 0xFF
}

func (m *NoMBC) Write(address uint16, value uint8) {
	if address >= 0xA000 && address <= 0xBFFF {
		m.ram[address-0xA000] = value
	}
}

func (m *NoMBC) RAM() []byte { return m.ram }

func (m *NoMBC) SaveState() MBCState { return MBCState{} }

func (m *NoMBC) RestoreState(MBCState) {}

// MBC1 supports up to 2 MiB ROM and 32 KiB RAM. The 5-bit low ROM bank
// and the 2-bit upper bits share a register pair. The upper bits always
// extend the switchable ROM bank; in mode 1 they also select the RAM bank
// and remap the fixed region 0x0000-0x3FFF to bank (upper << 5).
type MBC1 struct {
	rom        []uint8
	ram        []uint8
	bankLow    uint8 // 5-bit ROM bank, never 0
	bankUpper  uint8 // 2-bit upper ROM bank / RAM bank
	mode       uint8 // 0 = ROM banking, 1 = RAM banking
	ramEnabled bool
}

// NewMBC1 creates an MBC1 controller with the given RAM size.
func NewMBC1(rom []uint8, ramSize int) *MBC1 {
	return &MBC1{
		rom:     rom,
		ram:     make([]uint8, ramSize),
		bankLow: 1,
	}
}

func (m *MBC1) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		if m.mode == 1 {
			return readBanked(m.rom, int(m.bankUpper)<<5, address+0x4000)
		}
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
		return 0xFF
	case address <= 0x7FFF:
		bank := int(m.bankUpper)<<5 | int(m.bankLow)
		return readBanked(m.rom, bank, address)
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		return m.ram[m.ramOffset(address)]
	}
	return 0xFF
}

func (m *MBC1) Write(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address <= 0x3FFF:
		m.bankLow = value & 0x1F
		if m.bankLow == 0 {
			m.bankLow = 1
		}
	case address <= 0x5FFF:
		m.bankUpper = value & 0x03
	case address <= 0x7FFF:
		m.mode = value & 0x01
	case address >= 0xA000 && address <= 0xBFFF:
		if m.ramEnabled && len(m.ram) > 0 {
			m.ram[m.ramOffset(address)] = value
		}
	}
}

func (m *MBC1) ramOffset(address uint16) int {
	bank := 0
	if m.mode == 1 {
		bank = int(m.bankUpper)
	}
	offset := bank*0x2000 + int(address-0xA000)
	if offset >= len(m.ram) {
		offset %= len(m.ram)
	}
	return offset
}

func (m *MBC1) RAM() []byte { return m.ram }

func (m *MBC1) SaveState() MBCState {
	return MBCState{
		BankLow:    m.bankLow,
		BankUpper:  m.bankUpper,
		Mode:       m.mode,
		RAMEnabled: m.ramEnabled,
	}
}

func (m *MBC1) RestoreState(s MBCState) {
	m.bankLow = s.BankLow
	if m.bankLow == 0 {
		m.bankLow = 1
	}
	m.bankUpper = s.BankUpper
	m.mode = s.Mode
	m.ramEnabled = s.RAMEnabled
}

// MBC2 holds 512 half-byte RAM cells on the controller itself. Bit 8 of
// the write address selects between the RAM enable register and the
// 4-bit ROM bank register.
type MBC2 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint8
	ramEnabled bool
}

// NewMBC2 creates an MBC2 controller with its built-in nibble RAM.
func NewMBC2(rom []uint8) *MBC2 {
	return &MBC2{rom: rom, ram: make([]uint8, 512), romBank: 1}
}

func (m *MBC2) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
		return 0xFF
	case address <= 0x7FFF:
		return readBanked(m.rom, int(m.romBank), address)
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		// Only the low nibble exists; the high nibble reads as 1s.
		return m.ram[(address-0xA000)&0x1FF] | 0xF0
	}
	return 0xFF
}

func (m *MBC2) Write(address uint16, value uint8) {
	switch {
	case address <= 0x3FFF:
		if address&0x0100 != 0 {
			m.romBank = value & 0x0F
			if m.romBank == 0 {
				m.romBank = 1
			}
		} else {
			m.ramEnabled = value&0x0F == 0x0A
		}
	case address >= 0xA000 && address <= 0xBFFF:
		if m.ramEnabled {
			m.ram[(address-0xA000)&0x1FF] = value & 0x0F
		}
	}
}

func (m *MBC2) RAM() []byte { return m.ram }

func (m *MBC2) SaveState() MBCState {
	return MBCState{
		ROMBank:    uint16(m.romBank),
		RAMEnabled: m.ramEnabled,
	}
}

func (m *MBC2) RestoreState(s MBCState) {
	m.romBank = uint8(s.ROMBank)
	if m.romBank == 0 {
		m.romBank = 1
	}
	m.ramEnabled = s.RAMEnabled
}

// Clock abstracts wall-clock time for the MBC3 RTC so tests can drive it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// RTC register indices within MBC3.rtc.
const (
	rtcSeconds = iota
	rtcMinutes
	rtcHours
	rtcDayLow
	rtcDayHigh // bit 0 day bit 8, bit 6 halt, bit 7 day overflow
)

// MBC3 adds a 7-bit ROM bank and an optional real-time clock. Selecting
// 0x08-0x0C in the RAM bank register maps an RTC register instead of RAM;
// writing 0x00 then 0x01 to 0x6000-0x7FFF latches the live clock into a
// snapshot that reads return until the next latch.
type MBC3 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint8
	ramBank    uint8 // 0x00-0x03 RAM, 0x08-0x0C RTC select
	ramEnabled bool

	hasRTC     bool
	clock      Clock
	rtc        [5]uint8
	rtcLatched [5]uint8
	rtcBase    time.Time
	latchArm   bool // last write to the latch register was 0x00
}

// NewMBC3 creates an MBC3 controller. A nil clock selects the system
// clock when the cartridge has an RTC.
func NewMBC3(rom []uint8, ramSize int, hasRTC bool, clock Clock) *MBC3 {
	if hasRTC && clock == nil {
		clock = systemClock{}
	}
	m := &MBC3{
		rom:     rom,
		ram:     make([]uint8, ramSize),
		romBank: 1,
		hasRTC:  hasRTC,
		clock:   clock,
	}
	if hasRTC {
		m.rtcBase = clock.Now()
	}
	return m
}

func (m *MBC3) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
		return 0xFF
	case address <= 0x7FFF:
		return readBanked(m.rom, int(m.romBank), address)
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			if !m.hasRTC {
				return 0xFF
			}
			return m.rtcLatched[m.ramBank-0x08]
		}
		if len(m.ram) == 0 {
			return 0xFF
		}
		return m.ram[m.ramOffset(address)]
	}
	return 0xFF
}

func (m *MBC3) Write(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address <= 0x3FFF:
		m.romBank = value & 0x7F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case address <= 0x5FFF:
		if value <= 0x03 || (value >= 0x08 && value <= 0x0C) {
			m.ramBank = value
		}
	case address <= 0x7FFF:
		if m.latchArm && value == 0x01 {
			m.latchRTC()
		}
		m.latchArm = value == 0x00
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		if m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			if m.hasRTC {
				m.writeRTC(m.ramBank-0x08, value)
			}
			return
		}
		if len(m.ram) > 0 {
			m.ram[m.ramOffset(address)] = value
		}
	}
}

func (m *MBC3) ramOffset(address uint16) int {
	offset := int(m.ramBank)*0x2000 + int(address-0xA000)
	if offset >= len(m.ram) {
		offset %= len(m.ram)
	}
	return offset
}

// latchRTC folds elapsed wall time into the registers and snapshots them.
func (m *MBC3) latchRTC() {
	m.updateRTC()
	m.rtcLatched = m.rtc
}

func (m *MBC3) updateRTC() {
	if m.rtc[rtcDayHigh]&0x40 != 0 {
		// Halted: the counter does not advance.
		m.rtcBase = m.clock.Now()
		return
	}
	now := m.clock.Now()
	elapsed := int(now.Sub(m.rtcBase).Seconds())
	if elapsed <= 0 {
		return
	}
	m.rtcBase = now

	total := int(m.rtc[rtcSeconds]) +
		int(m.rtc[rtcMinutes])*60 +
		int(m.rtc[rtcHours])*3600 +
		(int(m.rtc[rtcDayLow])|int(m.rtc[rtcDayHigh]&0x01)<<8)*86400 +
		elapsed

	days := total / 86400
	m.rtc[rtcSeconds] = uint8(total % 60)
	m.rtc[rtcMinutes] = uint8(total / 60 % 60)
	m.rtc[rtcHours] = uint8(total / 3600 % 24)
	m.rtc[rtcDayLow] = uint8(days)
	m.rtc[rtcDayHigh] = m.rtc[rtcDayHigh]&0xFE | uint8(days>>8)&0x01
	if days > 511 {
		m.rtc[rtcDayHigh] |= 0x80
	}
}

func (m *MBC3) writeRTC(reg, value uint8) {
	m.rtc[reg] = value
	if reg == rtcDayHigh && value&0x40 == 0 {
		m.rtcBase = m.clock.Now()
	}
}

func (m *MBC3) RAM() []byte { return m.ram }

func (m *MBC3) SaveState() MBCState {
	return MBCState{
		ROMBank:    uint16(m.romBank),
		RAMBank:    m.ramBank,
		RAMEnabled: m.ramEnabled,
		RTC:        m.rtc,
		RTCLatched: m.rtcLatched,
		RTCBase:    m.rtcBase,
		LatchArm:   m.latchArm,
	}
}

func (m *MBC3) RestoreState(s MBCState) {
	m.romBank = uint8(s.ROMBank)
	if m.romBank == 0 {
		m.romBank = 1
	}
	m.ramBank = s.RAMBank
	m.ramEnabled = s.RAMEnabled
	m.rtc = s.RTC
	m.rtcLatched = s.RTCLatched
	m.latchArm = s.LatchArm
	if m.hasRTC {
		m.rtcBase = s.RTCBase
		if m.rtcBase.IsZero() {
			m.rtcBase = m.clock.Now()
		}
	}
}

// MBC5 uses a full 9-bit ROM bank with no 0-to-1 remapping, so bank 0 can
// be mapped into the switchable region as well.
type MBC5 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint16
	ramBank    uint8
	ramEnabled bool
}

// NewMBC5 creates an MBC5 controller with the given RAM size.
func NewMBC5(rom []uint8, ramSize int) *MBC5 {
	return &MBC5{rom: rom, ram: make([]uint8, ramSize), romBank: 1}
}

func (m *MBC5) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
		return 0xFF
	case address <= 0x7FFF:
		return readBanked(m.rom, int(m.romBank), address)
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		return m.ram[m.ramOffset(address)]
	}
	return 0xFF
}

func (m *MBC5) Write(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address <= 0x2FFF:
		m.romBank = m.romBank&0x100 | uint16(value)
	case address <= 0x3FFF:
		m.romBank = m.romBank&0xFF | uint16(value&0x01)<<8
	case address <= 0x5FFF:
		m.ramBank = value & 0x0F
	case address >= 0xA000 && address <= 0xBFFF:
		if m.ramEnabled && len(m.ram) > 0 {
			m.ram[m.ramOffset(address)] = value
		}
	}
}

func (m *MBC5) ramOffset(address uint16) int {
	offset := int(m.ramBank)*0x2000 + int(address-0xA000)
	if offset >= len(m.ram) {
		offset %= len(m.ram)
	}
	return offset
}

func (m *MBC5) RAM() []byte { return m.ram }

func (m *MBC5) SaveState() MBCState {
	return MBCState{
		ROMBank:    m.romBank,
		RAMBank:    m.ramBank,
		RAMEnabled: m.ramEnabled,
	}
}

func (m *MBC5) RestoreState(s MBCState) {
	m.romBank = s.ROMBank
	m.ramBank = s.RAMBank
	m.ramEnabled = s.RAMEnabled
}
