package audio

// ChannelState is the serializable image of one voice. The four
// channels share the struct; fields irrelevant to a channel type stay
// zero, the same way the register file has holes.
type ChannelState struct {
	Enabled bool
	DAC     bool

	Duty uint8
	Freq uint16

	Volume     uint8
	VolumeInit uint8
	EnvUp      bool
	EnvPeriod  uint8

	Length   uint16
	LengthEn bool
	Phase    float64

	SweepPeriod uint8
	SweepNegate bool
	SweepShift  uint8
	SweepTimer  uint8

	VolCode uint8
	WaveRAM [16]uint8

	ClockShift  uint8
	Width7      bool
	DivisorCode uint8
	LFSR        uint16
	Timer       float64
}

// State is the serializable image of the whole APU.
type State struct {
	Enabled            bool
	VolLeft, VolRight  uint8
	PanLeft, PanRight  [4]bool
	CH1, CH2, CH3, CH4 ChannelState
	FrameStep          uint8
}

// SaveState captures the APU state.
func (a *APU) SaveState() State {
	return State{
		Enabled: a.enabled,
		VolLeft: a.volLeft, VolRight: a.volRight,
		PanLeft: a.panLeft, PanRight: a.panRight,
		CH1:       saveSquare(&a.ch1),
		CH2:       saveSquare(&a.ch2),
		CH3:       saveWave(&a.ch3),
		CH4:       saveNoise(&a.ch4),
		FrameStep: a.frameStep,
	}
}

// RestoreState overwrites the APU from a snapshot.
func (a *APU) RestoreState(s State) {
	a.enabled = s.Enabled
	a.volLeft, a.volRight = s.VolLeft, s.VolRight
	a.panLeft, a.panRight = s.PanLeft, s.PanRight
	restoreSquare(&a.ch1, s.CH1)
	restoreSquare(&a.ch2, s.CH2)
	restoreWave(&a.ch3, s.CH3)
	restoreNoise(&a.ch4, s.CH4)
	a.frameStep = s.FrameStep
}

func saveSquare(c *square) ChannelState {
	return ChannelState{
		Enabled: c.enabled, DAC: c.dac,
		Duty: c.duty, Freq: c.freq,
		Volume: c.volume, VolumeInit: c.volumeInit,
		EnvUp: c.envUp, EnvPeriod: c.envPeriod,
		Length: c.length, LengthEn: c.lengthEn, Phase: c.phase,
		SweepPeriod: c.sweepPeriod, SweepNegate: c.sweepNegate,
		SweepShift: c.sweepShift, SweepTimer: c.sweepTimer,
	}
}

func restoreSquare(c *square, s ChannelState) {
	c.enabled, c.dac = s.Enabled, s.DAC
	c.duty, c.freq = s.Duty, s.Freq
	c.volume, c.volumeInit = s.Volume, s.VolumeInit
	c.envUp, c.envPeriod = s.EnvUp, s.EnvPeriod
	c.length, c.lengthEn, c.phase = s.Length, s.LengthEn, s.Phase
	c.sweepPeriod, c.sweepNegate = s.SweepPeriod, s.SweepNegate
	c.sweepShift, c.sweepTimer = s.SweepShift, s.SweepTimer
}

func saveWave(w *wave) ChannelState {
	return ChannelState{
		Enabled: w.enabled, DAC: w.dac,
		Freq: w.freq, VolCode: w.volCode,
		Length: w.length, LengthEn: w.lengthEn, Phase: w.phase,
		WaveRAM: w.ram,
	}
}

func restoreWave(w *wave, s ChannelState) {
	w.enabled, w.dac = s.Enabled, s.DAC
	w.freq, w.volCode = s.Freq, s.VolCode
	w.length, w.lengthEn, w.phase = s.Length, s.LengthEn, s.Phase
	w.ram = s.WaveRAM
}

func saveNoise(n *noise) ChannelState {
	return ChannelState{
		Enabled: n.enabled, DAC: n.dac,
		Volume: n.volume, VolumeInit: n.volumeInit,
		EnvUp: n.envUp, EnvPeriod: n.envPeriod,
		Length: n.length, LengthEn: n.lengthEn,
		ClockShift: n.clockShift, Width7: n.width7,
		DivisorCode: n.divisorCode, LFSR: n.lfsr, Timer: n.timer,
	}
}

func restoreNoise(n *noise, s ChannelState) {
	n.enabled, n.dac = s.Enabled, s.DAC
	n.volume, n.volumeInit = s.Volume, s.VolumeInit
	n.envUp, n.envPeriod = s.EnvUp, s.EnvPeriod
	n.length, n.lengthEn = s.Length, s.LengthEn
	n.clockShift, n.width7 = s.ClockShift, s.Width7
	n.divisorCode, n.lfsr, n.timer = s.DivisorCode, s.LFSR, s.Timer
}
