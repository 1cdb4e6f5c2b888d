package audio

// Sink receives interleaved stereo float samples in [-1, 1] at the
// APU's sample rate. The APU performs no I/O itself; a backend queues
// the samples to a real device, or discards them.
type Sink interface {
	PushSamples(samples []float32)
}

// DiscardSink drops all audio. Channel state still advances, so
// software that polls NR52 keeps working with no device attached.
type DiscardSink struct{}

func (DiscardSink) PushSamples([]float32) {}
