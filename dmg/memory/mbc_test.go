package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bankedROM builds a ROM where every byte of a bank holds the bank number.
func bankedROM(banks int) []uint8 {
	rom := make([]uint8, banks*0x4000)
	for i := range rom {
		rom[i] = uint8(i / 0x4000)
	}
	return rom
}

func TestMBC1(t *testing.T) {
	t.Run("bank 0 is fixed", func(t *testing.T) {
		mbc := NewMBC1(bankedROM(4), 0)
		assert.Equal(t, uint8(0), mbc.Read(0x0000))
		assert.Equal(t, uint8(0), mbc.Read(0x3FFF))
	})

	t.Run("ROM bank switching", func(t *testing.T) {
		mbc := NewMBC1(bankedROM(4), 0)

		assert.Equal(t, uint8(1), mbc.Read(0x4000), "default bank is 1")

		mbc.Write(0x2000, 2)
		assert.Equal(t, uint8(2), mbc.Read(0x4000))

		mbc.Write(0x2000, 0)
		assert.Equal(t, uint8(1), mbc.Read(0x4000), "bank 0 remaps to 1")
	})

	t.Run("upper bank bits in ROM mode", func(t *testing.T) {
		mbc := NewMBC1(bankedROM(64), 0)
		mbc.Write(0x2000, 0x01)
		mbc.Write(0x4000, 0x01) // upper bits
		assert.Equal(t, uint8(33), mbc.Read(0x4000))
	})

	t.Run("mode 1 remaps the fixed region", func(t *testing.T) {
		mbc := NewMBC1(bankedROM(64), 0)
		mbc.Write(0x4000, 0x01)
		mbc.Write(0x6000, 0x01) // RAM banking mode
		assert.Equal(t, uint8(32), mbc.Read(0x0000))
	})

	t.Run("RAM enable and banking", func(t *testing.T) {
		mbc := NewMBC1(bankedROM(2), 32*1024)

		assert.Equal(t, uint8(0xFF), mbc.Read(0xA000), "disabled RAM reads 0xFF")

		mbc.Write(0x0000, 0x0A)
		mbc.Write(0x6000, 0x01)

		for bank := uint8(0); bank < 4; bank++ {
			mbc.Write(0x4000, bank)
			mbc.Write(0xA000, 0x40+bank)
		}
		for bank := uint8(0); bank < 4; bank++ {
			mbc.Write(0x4000, bank)
			assert.Equal(t, 0x40+bank, mbc.Read(0xA000))
		}

		mbc.Write(0x0000, 0x00)
		assert.Equal(t, uint8(0xFF), mbc.Read(0xA000), "disabled again")
	})
}

func TestMBC2(t *testing.T) {
	t.Run("address bit 8 selects the register", func(t *testing.T) {
		mbc := NewMBC2(bankedROM(16))

		// bit 8 clear: RAM enable, does not touch the ROM bank
		mbc.Write(0x0000, 0x0A)
		assert.Equal(t, uint8(1), mbc.Read(0x4000))

		// bit 8 set: ROM bank
		mbc.Write(0x0100, 0x03)
		assert.Equal(t, uint8(3), mbc.Read(0x4000))

		mbc.Write(0x0100, 0x00)
		assert.Equal(t, uint8(1), mbc.Read(0x4000), "bank 0 remaps to 1")
	})

	t.Run("nibble RAM", func(t *testing.T) {
		mbc := NewMBC2(bankedROM(2))
		mbc.Write(0x0000, 0x0A)

		mbc.Write(0xA000, 0xAB)
		assert.Equal(t, uint8(0xFB), mbc.Read(0xA000), "high nibble reads as 1s")
	})
}

// fakeClock drives the MBC3 RTC in tests.
type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func TestMBC3(t *testing.T) {
	t.Run("7-bit ROM bank", func(t *testing.T) {
		mbc := NewMBC3(bankedROM(128), 0, false, nil)
		mbc.Write(0x2000, 0x7F)
		assert.Equal(t, uint8(127), mbc.Read(0x4000))
		mbc.Write(0x2000, 0x00)
		assert.Equal(t, uint8(1), mbc.Read(0x4000))
	})

	t.Run("RTC latch sequence", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1000, 0)}
		mbc := NewMBC3(bankedROM(2), 8*1024, true, clock)

		mbc.Write(0x0000, 0x0A)
		mbc.Write(0x4000, 0x08) // select seconds register

		clock.now = clock.now.Add(90 * time.Second)
		mbc.Write(0x6000, 0x00)
		mbc.Write(0x6000, 0x01)

		assert.Equal(t, uint8(30), mbc.Read(0xA000), "90s = 1min 30s")
		mbc.Write(0x4000, 0x09)
		assert.Equal(t, uint8(1), mbc.Read(0xA000))
	})

	t.Run("latched value is stable until next latch", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(0, 0)}
		mbc := NewMBC3(bankedROM(2), 8*1024, true, clock)
		mbc.Write(0x0000, 0x0A)
		mbc.Write(0x4000, 0x08)

		clock.now = clock.now.Add(10 * time.Second)
		mbc.Write(0x6000, 0x00)
		mbc.Write(0x6000, 0x01)
		first := mbc.Read(0xA000)

		clock.now = clock.now.Add(25 * time.Second)
		assert.Equal(t, first, mbc.Read(0xA000))

		mbc.Write(0x6000, 0x00)
		mbc.Write(0x6000, 0x01)
		assert.Equal(t, uint8(35), mbc.Read(0xA000))
	})

	t.Run("RAM bank select", func(t *testing.T) {
		mbc := NewMBC3(bankedROM(2), 32*1024, false, nil)
		mbc.Write(0x0000, 0x0A)
		mbc.Write(0x4000, 0x02)
		mbc.Write(0xA000, 0x42)
		mbc.Write(0x4000, 0x00)
		assert.Equal(t, uint8(0x00), mbc.Read(0xA000), "bank 0 untouched")
		mbc.Write(0x4000, 0x02)
		assert.Equal(t, uint8(0x42), mbc.Read(0xA000))
	})
}

func TestMBC5(t *testing.T) {
	t.Run("9-bit ROM bank, no remap", func(t *testing.T) {
		mbc := NewMBC5(bankedROM(4), 0)

		mbc.Write(0x2000, 0x00)
		assert.Equal(t, uint8(0), mbc.Read(0x4000), "bank 0 stays bank 0")

		mbc.Write(0x2000, 0x03)
		assert.Equal(t, uint8(3), mbc.Read(0x4000))
	})

	t.Run("bank bit 8", func(t *testing.T) {
		rom := make([]uint8, 0x4000*300)
		rom[256*0x4000] = 0xAA
		mbc := NewMBC5(rom, 0)
		mbc.Write(0x2000, 0x00)
		mbc.Write(0x3000, 0x01)
		assert.Equal(t, uint8(0xAA), mbc.Read(0x4000))
	})

	t.Run("4-bit RAM bank", func(t *testing.T) {
		mbc := NewMBC5(bankedROM(2), 128*1024)
		mbc.Write(0x0000, 0x0A)
		for bank := uint8(0); bank < 16; bank++ {
			mbc.Write(0x4000, bank)
			mbc.Write(0xA000, bank)
		}
		for bank := uint8(0); bank < 16; bank++ {
			mbc.Write(0x4000, bank)
			assert.Equal(t, bank, mbc.Read(0xA000))
		}
	})
}

func TestMBCStateRoundTrip(t *testing.T) {
	t.Run("MBC1 banking registers", func(t *testing.T) {
		mbc := NewMBC1(bankedROM(64), 32*1024)
		mbc.Write(0x0000, 0x0A)
		mbc.Write(0x2000, 0x02)
		mbc.Write(0x4000, 0x01)
		mbc.Write(0x6000, 0x01)
		mbc.Write(0xA000, 0x42)

		fresh := NewMBC1(bankedROM(64), 32*1024)
		fresh.RestoreState(mbc.SaveState())
		copy(fresh.RAM(), mbc.RAM())

		assert.Equal(t, uint8(32), fresh.Read(0x0000), "mode 1 remap restored")
		assert.Equal(t, mbc.Read(0x4000), fresh.Read(0x4000), "ROM bank restored")
		assert.Equal(t, uint8(0x42), fresh.Read(0xA000), "RAM enable and bank restored")
	})

	t.Run("MBC5 9-bit bank", func(t *testing.T) {
		rom := make([]uint8, 0x4000*300)
		rom[257*0x4000] = 0xBB
		mbc := NewMBC5(rom, 0)
		mbc.Write(0x2000, 0x01)
		mbc.Write(0x3000, 0x01)

		fresh := NewMBC5(rom, 0)
		fresh.RestoreState(mbc.SaveState())
		assert.Equal(t, uint8(0xBB), fresh.Read(0x4000))
	})

	t.Run("MBC3 RTC snapshot", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(0, 0)}
		mbc := NewMBC3(bankedROM(2), 8*1024, true, clock)
		mbc.Write(0x0000, 0x0A)
		mbc.Write(0x4000, 0x08)
		clock.now = clock.now.Add(42 * time.Second)
		mbc.Write(0x6000, 0x00)
		mbc.Write(0x6000, 0x01)
		require.Equal(t, uint8(42), mbc.Read(0xA000))

		fresh := NewMBC3(bankedROM(2), 8*1024, true, clock)
		fresh.RestoreState(mbc.SaveState())
		assert.Equal(t, uint8(42), fresh.Read(0xA000), "latched RTC and bank select restored")
	})
}

func TestMBC3WithoutTimer(t *testing.T) {
	// type 0x13 is MBC3+RAM+BATTERY, no RTC: the 0x08-0x0C selects must
	// read open bus instead of phantom clock registers
	rom := make([]byte, 0x8000)
	rom[cartridgeTypeAddress] = 0x13
	rom[ramSizeAddress] = 0x03
	cart := NewCartridgeWithData(rom)

	mbc, ok := cart.mbc.(*MBC3)
	require.True(t, ok)
	assert.False(t, mbc.hasRTC)

	cart.Write(0x0000, 0x0A)
	cart.Write(0x4000, 0x08)
	assert.Equal(t, uint8(0xFF), cart.Read(0xA000))
	assert.True(t, cart.HasBattery())
}

func TestCartridgeHeader(t *testing.T) {
	rom := make([]byte, 0x8000)
	copy(rom[titleAddress:], "TESTCART")
	rom[cartridgeTypeAddress] = 0x03 // MBC1+RAM+BATTERY
	rom[romSizeAddress] = 0x00
	rom[ramSizeAddress] = 0x03 // 32 KiB

	cart := NewCartridgeWithData(rom)
	assert.Equal(t, "TESTCART", cart.Title())
	assert.Equal(t, 32*1024, cart.RAMSize())
	assert.True(t, cart.HasBattery())
	assert.IsType(t, &MBC1{}, cart.mbc)
}

func TestCartridgeMalformedHeader(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[cartridgeTypeAddress] = 0x01
	rom[romSizeAddress] = 0x42 // not in the table
	rom[ramSizeAddress] = 0x99 // not in the table

	cart := NewCartridgeWithData(rom)
	assert.Equal(t, len(rom), cart.romSize, "falls back to image length")
	assert.Equal(t, 0, cart.RAMSize())
}

func TestCartridgeUnknownTypeFallsBackToMBC1(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[cartridgeTypeAddress] = 0x42
	cart := NewCartridgeWithData(rom)
	assert.IsType(t, &MBC1{}, cart.mbc)
}

func TestCartridgeSaveRAMRoundTrip(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[cartridgeTypeAddress] = 0x03
	rom[ramSizeAddress] = 0x02 // 8 KiB
	cart := NewCartridgeWithData(rom)

	cart.Write(0x0000, 0x0A)
	cart.Write(0xA000, 0x55)
	cart.Write(0xA123, 0x77)

	dump := cart.DumpRAM()
	require.Len(t, dump, 8*1024)

	other := NewCartridgeWithData(rom)
	require.NoError(t, other.RestoreRAM(dump))
	other.Write(0x0000, 0x0A)
	assert.Equal(t, uint8(0x55), other.Read(0xA000))
	assert.Equal(t, uint8(0x77), other.Read(0xA123))

	assert.Error(t, other.RestoreRAM(make([]byte, 64*1024)), "oversized save rejected")
}
