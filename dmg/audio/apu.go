package audio

import (
	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
)

// SampleRate is the output sample rate in Hz. It is decoupled from the
// guest clock; channel frequencies are computed in Hz and advanced by
// freq/SampleRate per output sample.
const SampleRate = 22050

const (
	cpuFrequency   = 4194304
	cyclesPerFrame = 70224

	// SamplesPerFrame is one video frame's worth of output samples:
	// SampleRate * cyclesPerFrame / cpuFrequency, ~59.73 frames/s.
	SamplesPerFrame = SampleRate * cyclesPerFrame / cpuFrequency

	// mixDivisor normalizes the per-ear channel sum before master
	// volume scaling.
	mixDivisor = 60.0

	lfsrSeed = 0x7FFF
)

// dutyPatterns are the four square duties (12.5%, 25%, 50%, 75%).
var dutyPatterns = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
}

// waveVolumeShift maps the channel 3 volume code to a right shift;
// code 0 mutes.
var waveVolumeShift = [4]uint8{4, 0, 1, 2}

// noiseDivisors maps NR43 bits 2-0 to the LFSR clock divisor.
var noiseDivisors = [8]uint16{8, 16, 32, 48, 64, 80, 96, 112}

// square is the shared state of channels 1 and 2. Channel 1 also owns
// the sweep fields.
type square struct {
	enabled bool
	dac     bool

	duty uint8
	freq uint16 // 11-bit frequency code

	volume     uint8
	volumeInit uint8
	envUp      bool
	envPeriod  uint8

	length    uint16
	lengthEn  bool
	phase     float64

	// channel 1 sweep
	sweepPeriod uint8
	sweepNegate bool
	sweepShift  uint8
	sweepTimer  uint8
}

// wave is channel 3: 32 4-bit samples played from wave RAM.
type wave struct {
	enabled bool
	dac     bool

	freq    uint16
	volCode uint8 // 0 mute, 1 100%, 2 50%, 3 25%

	length   uint16
	lengthEn bool
	phase    float64

	ram [16]uint8 // 32 nibbles
}

// noise is channel 4: a 15-bit LFSR clocked from a divisor table.
type noise struct {
	enabled bool
	dac     bool

	volume     uint8
	volumeInit uint8
	envUp      bool
	envPeriod  uint8

	length   uint16
	lengthEn bool

	clockShift  uint8
	width7      bool // 7-bit LFSR mode
	divisorCode uint8

	lfsr  uint16
	timer float64
}

// APU synthesizes the four Game Boy voices. It advances only at frame
// boundaries: EndFrame generates one frame's worth of samples, batches
// the frame sequencer, and hands the buffer to the injected Sink.
type APU struct {
	enabled bool // NR52 bit 7

	volLeft  uint8
	volRight uint8
	panLeft  [4]bool
	panRight [4]bool

	ch1 square
	ch2 square
	ch3 wave
	ch4 noise

	frameStep uint8

	sink   Sink
	buffer []float32
}

// New creates an APU wired to the given sample sink. A nil sink
// discards all audio.
func New(sink Sink) *APU {
	if sink == nil {
		sink = DiscardSink{}
	}
	a := &APU{
		sink:   sink,
		buffer: make([]float32, SamplesPerFrame*2),
	}
	a.Reset()
	return a
}

// Reset restores the power-on state of all channels and mixers.
func (a *APU) Reset() {
	a.enabled = true
	a.volLeft, a.volRight = 7, 7
	for i := range a.panLeft {
		a.panLeft[i] = true
		a.panRight[i] = true
	}
	// channel 1 comes out of the boot ROM playing the ding
	a.ch1 = square{enabled: true, duty: 2, volumeInit: 0xF, volume: 0xF, envPeriod: 3, dac: true}
	a.ch2 = square{}
	a.ch3 = wave{}
	a.ch4 = noise{lfsr: lfsrSeed}
	a.frameStep = 0
}

// EndFrame synthesizes one frame of interleaved stereo samples and
// pushes them to the sink. Frame-sequencer ticks are batched here: one
// frame at 59.73 Hz spans about 8.6 ticks of the 512 Hz sequencer, and
// 8 are run.
func (a *APU) EndFrame() {
	for i := 0; i < SamplesPerFrame; i++ {
		left, right := a.mixSample()
		a.buffer[i*2] = left
		a.buffer[i*2+1] = right
	}
	for i := 0; i < 8; i++ {
		a.tickFrameSequencer()
	}
	a.sink.PushSamples(a.buffer)
}

func (a *APU) mixSample() (float32, float32) {
	var left, right float64

	if a.ch1.enabled && a.ch1.dac && a.ch1.freq > 0 {
		s := a.ch1.sample()
		if a.panLeft[0] {
			left += s
		}
		if a.panRight[0] {
			right += s
		}
	}
	if a.ch2.enabled && a.ch2.dac && a.ch2.freq > 0 {
		s := a.ch2.sample()
		if a.panLeft[1] {
			left += s
		}
		if a.panRight[1] {
			right += s
		}
	}
	if a.ch3.enabled && a.ch3.dac && a.ch3.freq > 0 {
		s := a.ch3.sample()
		if a.panLeft[2] {
			left += s
		}
		if a.panRight[2] {
			right += s
		}
	}
	if a.ch4.enabled && a.ch4.dac {
		s := a.ch4.sample()
		if a.panLeft[3] {
			left += s
		}
		if a.panRight[3] {
			right += s
		}
	}

	left = left / mixDivisor * (float64(a.volLeft+1) / 8)
	right = right / mixDivisor * (float64(a.volRight+1) / 8)

	return clamp(left), clamp(right)
}

func clamp(v float64) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return float32(v)
}

// sample advances the square phase by one output sample and reads the
// duty pattern at the current position.
func (s *square) sample() float64 {
	hz := 131072.0 / float64(2048-s.freq)
	s.phase += hz / SampleRate
	if s.phase >= 1 {
		s.phase -= 1
	}
	pos := int(s.phase*8) & 7
	return float64(dutyPatterns[s.duty][pos]) * float64(s.volume)
}

func (w *wave) sample() float64 {
	if w.volCode == 0 {
		return 0
	}
	hz := 65536.0 / float64(2048-w.freq)
	w.phase += hz / SampleRate
	if w.phase >= 1 {
		w.phase -= 1
	}
	pos := int(w.phase*32) & 31
	return float64(w.nibble(pos) >> waveVolumeShift[w.volCode])
}

func (w *wave) nibble(pos int) uint8 {
	b := w.ram[pos/2]
	if pos&1 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

func (n *noise) sample() float64 {
	if n.volume == 0 {
		return 0
	}
	if n.clockShift < 14 {
		div := noiseDivisors[n.divisorCode]
		hz := 262144.0 / float64(uint32(div)<<n.clockShift)
		n.timer += hz / SampleRate
		for n.timer >= 1 {
			n.timer -= 1
			n.clock()
		}
	}
	if n.lfsr&1 == 1 {
		return 0
	}
	return float64(n.volume)
}

// clock shifts the LFSR once: feedback is bit0 XOR bit1 into bit 14,
// mirrored into bit 6 in 7-bit mode.
func (n *noise) clock() {
	x := n.lfsr&1 ^ n.lfsr>>1&1
	n.lfsr = n.lfsr>>1 | x<<14
	if n.width7 {
		n.lfsr = n.lfsr&^0x40 | x<<6
	}
}

// tickFrameSequencer advances one of the 8 steps of the 512 Hz
// sequencer: even steps clock lengths, steps 2 and 6 the sweep, step 7
// the envelopes.
func (a *APU) tickFrameSequencer() {
	step := a.frameStep
	a.frameStep = (step + 1) & 7

	if step%2 == 0 {
		a.clockLengths()
	}
	if step == 2 || step == 6 {
		a.clockSweep()
	}
	if step == 7 {
		a.clockEnvelopes()
	}
}

func (a *APU) clockLengths() {
	clockLength(&a.ch1.length, a.ch1.lengthEn, &a.ch1.enabled)
	clockLength(&a.ch2.length, a.ch2.lengthEn, &a.ch2.enabled)
	clockLength(&a.ch3.length, a.ch3.lengthEn, &a.ch3.enabled)
	clockLength(&a.ch4.length, a.ch4.lengthEn, &a.ch4.enabled)
}

func clockLength(length *uint16, enabled bool, channelOn *bool) {
	if !enabled || *length == 0 {
		return
	}
	*length--
	if *length == 0 {
		*channelOn = false
	}
}

// clockSweep recomputes channel 1's frequency. An overflow past 2047
// silences the channel until the next trigger.
func (a *APU) clockSweep() {
	c := &a.ch1
	if c.sweepPeriod == 0 {
		return
	}
	c.sweepTimer++
	if c.sweepTimer < c.sweepPeriod {
		return
	}
	c.sweepTimer = 0
	if c.sweepShift == 0 {
		return
	}

	delta := c.freq >> c.sweepShift
	if c.sweepNegate {
		c.freq -= delta
		return
	}
	next := c.freq + delta
	if next > 2047 {
		c.enabled = false
		return
	}
	c.freq = next
}

func (a *APU) clockEnvelopes() {
	clockEnvelope(&a.ch1.volume, a.ch1.envUp, a.ch1.envPeriod)
	clockEnvelope(&a.ch2.volume, a.ch2.envUp, a.ch2.envPeriod)
	clockEnvelope(&a.ch4.volume, a.ch4.envUp, a.ch4.envPeriod)
}

func clockEnvelope(volume *uint8, up bool, period uint8) {
	if period == 0 {
		return
	}
	if up && *volume < 15 {
		*volume++
	} else if !up && *volume > 0 {
		*volume--
	}
}

// ReadRegister implements memory.Peripheral for 0xFF10-0xFF3F. Values
// are reconstructed from channel state with the hardware's read-back
// masks, so write-only bits come back as 1s.
func (a *APU) ReadRegister(address uint16) uint8 {
	switch address {
	case addr.NR10:
		v := uint8(0x80) | a.ch1.sweepPeriod<<4 | a.ch1.sweepShift
		if a.ch1.sweepNegate {
			v |= 0x08
		}
		return v
	case addr.NR11:
		return a.ch1.duty<<6 | 0x3F
	case addr.NR12:
		return envelopeByte(a.ch1.volumeInit, a.ch1.envUp, a.ch1.envPeriod)
	case addr.NR14:
		return controlByte(a.ch1.lengthEn)
	case addr.NR21:
		return a.ch2.duty<<6 | 0x3F
	case addr.NR22:
		return envelopeByte(a.ch2.volumeInit, a.ch2.envUp, a.ch2.envPeriod)
	case addr.NR24:
		return controlByte(a.ch2.lengthEn)
	case addr.NR30:
		if a.ch3.dac {
			return 0xFF
		}
		return 0x7F
	case addr.NR32:
		return 0x9F | a.ch3.volCode<<5
	case addr.NR34:
		return controlByte(a.ch3.lengthEn)
	case addr.NR42:
		return envelopeByte(a.ch4.volumeInit, a.ch4.envUp, a.ch4.envPeriod)
	case addr.NR43:
		v := a.ch4.clockShift<<4 | a.ch4.divisorCode
		if a.ch4.width7 {
			v |= 0x08
		}
		return v
	case addr.NR44:
		return controlByte(a.ch4.lengthEn)
	case addr.NR50:
		return a.volLeft<<4 | a.volRight
	case addr.NR51:
		var v uint8
		for i := 3; i >= 0; i-- {
			if a.panLeft[i] {
				v |= 1 << (4 + i)
			}
			if a.panRight[i] {
				v |= 1 << i
			}
		}
		return v
	case addr.NR52:
		v := uint8(0x70)
		if a.enabled {
			v |= 0x80
		}
		if a.ch1.enabled {
			v |= 0x01
		}
		if a.ch2.enabled {
			v |= 0x02
		}
		if a.ch3.enabled {
			v |= 0x04
		}
		if a.ch4.enabled {
			v |= 0x08
		}
		return v
	}

	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		return a.ch3.ram[address-addr.WaveRAMStart]
	}
	return 0xFF
}

func envelopeByte(volumeInit uint8, up bool, period uint8) uint8 {
	v := volumeInit<<4 | period
	if up {
		v |= 0x08
	}
	return v
}

func controlByte(lengthEn bool) uint8 {
	if lengthEn {
		return 0xFF
	}
	return 0xBF
}

// WriteRegister implements memory.Peripheral for 0xFF10-0xFF3F. With
// master power off only NR52 and wave RAM accept writes.
func (a *APU) WriteRegister(address uint16, value uint8) {
	isWaveRAM := address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd
	if !a.enabled && address != addr.NR52 && !isWaveRAM {
		return
	}
	if isWaveRAM {
		a.ch3.ram[address-addr.WaveRAMStart] = value
		return
	}

	switch address {
	case addr.NR10:
		a.ch1.sweepPeriod = value >> 4 & 7
		a.ch1.sweepNegate = bit.IsSet(3, value)
		a.ch1.sweepShift = value & 7
	case addr.NR11:
		a.ch1.duty = value >> 6
		a.ch1.length = 64 - uint16(value&0x3F)
	case addr.NR12:
		a.ch1.writeEnvelope(value)
	case addr.NR13:
		a.ch1.freq = a.ch1.freq&0x700 | uint16(value)
	case addr.NR14:
		a.ch1.writeControl(value)
	case addr.NR21:
		a.ch2.duty = value >> 6
		a.ch2.length = 64 - uint16(value&0x3F)
	case addr.NR22:
		a.ch2.writeEnvelope(value)
	case addr.NR23:
		a.ch2.freq = a.ch2.freq&0x700 | uint16(value)
	case addr.NR24:
		a.ch2.writeControl(value)
	case addr.NR30:
		a.ch3.dac = bit.IsSet(7, value)
		if !a.ch3.dac {
			a.ch3.enabled = false
		}
	case addr.NR31:
		a.ch3.length = 256 - uint16(value)
	case addr.NR32:
		a.ch3.volCode = value >> 5 & 3
	case addr.NR33:
		a.ch3.freq = a.ch3.freq&0x700 | uint16(value)
	case addr.NR34:
		a.ch3.freq = a.ch3.freq&0xFF | uint16(value&7)<<8
		a.ch3.lengthEn = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.ch3.enabled = a.ch3.dac
			if a.ch3.length == 0 {
				a.ch3.length = 256
			}
		}
	case addr.NR41:
		a.ch4.length = 64 - uint16(value&0x3F)
	case addr.NR42:
		a.ch4.volumeInit = value >> 4
		a.ch4.envUp = bit.IsSet(3, value)
		a.ch4.envPeriod = value & 7
		a.ch4.dac = value&0xF8 != 0
		if !a.ch4.dac {
			a.ch4.enabled = false
		}
	case addr.NR43:
		a.ch4.clockShift = value >> 4
		a.ch4.width7 = bit.IsSet(3, value)
		a.ch4.divisorCode = value & 7
	case addr.NR44:
		a.ch4.lengthEn = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.ch4.enabled = a.ch4.dac
			a.ch4.volume = a.ch4.volumeInit
			a.ch4.lfsr = lfsrSeed
			a.ch4.timer = 0
			if a.ch4.length == 0 {
				a.ch4.length = 64
			}
		}
	case addr.NR50:
		a.volLeft = value >> 4 & 7
		a.volRight = value & 7
	case addr.NR51:
		for i := 0; i < 4; i++ {
			a.panLeft[i] = bit.IsSet(uint8(4+i), value)
			a.panRight[i] = bit.IsSet(uint8(i), value)
		}
	case addr.NR52:
		wasEnabled := a.enabled
		a.enabled = bit.IsSet(7, value)
		if wasEnabled && !a.enabled {
			a.powerOff()
		}
	}
}

func (s *square) writeEnvelope(value uint8) {
	s.volumeInit = value >> 4
	s.envUp = bit.IsSet(3, value)
	s.envPeriod = value & 7
	s.dac = value&0xF8 != 0
	if !s.dac {
		s.enabled = false
	}
}

// writeControl handles the NRx4 register of a square channel:
// frequency high bits, length enable and the trigger.
func (s *square) writeControl(value uint8) {
	s.freq = s.freq&0xFF | uint16(value&7)<<8
	s.lengthEn = bit.IsSet(6, value)
	if bit.IsSet(7, value) {
		s.enabled = s.dac
		s.volume = s.volumeInit
		s.sweepTimer = 0
		if s.length == 0 {
			s.length = 64
		}
	}
}

// powerOff silences everything; register writes are ignored until NR52
// bit 7 is set again.
func (a *APU) powerOff() {
	ram := a.ch3.ram
	a.ch1 = square{}
	a.ch2 = square{}
	a.ch3 = wave{ram: ram} // wave RAM survives power cycling
	a.ch4 = noise{lfsr: lfsrSeed}
	a.volLeft, a.volRight = 0, 0
	a.panLeft = [4]bool{}
	a.panRight = [4]bool{}
	a.frameStep = 0
}

// ChannelStatus reports per-channel activity for debug frontends.
func (a *APU) ChannelStatus() (ch1, ch2, ch3, ch4 bool) {
	return a.ch1.enabled, a.ch2.enabled, a.ch3.enabled, a.ch4.enabled
}
