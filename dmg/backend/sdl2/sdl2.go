//go:build sdl2

// Package sdl2 is the windowed backend: an SDL texture for video, a
// queued SDL audio device for sound. Building it needs the SDL2
// development libraries; default builds get the stub instead (see the
// sdl2 build tag).
package sdl2

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/valerio/go-dmg/dmg/audio"
	"github.com/valerio/go-dmg/dmg/backend"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/video"
)

// shades are ARGB values for the four palette indices.
var shades = [4]uint32{0xFFFFFFFF, 0xFF989898, 0xFF4C4C4C, 0xFF000000}

var keymap = map[sdl.Keycode]memory.Button{
	sdl.K_UP:     memory.ButtonUp,
	sdl.K_DOWN:   memory.ButtonDown,
	sdl.K_LEFT:   memory.ButtonLeft,
	sdl.K_RIGHT:  memory.ButtonRight,
	sdl.K_z:      memory.ButtonA,
	sdl.K_x:      memory.ButtonB,
	sdl.K_RETURN: memory.ButtonStart,
	sdl.K_SPACE:  memory.ButtonSelect,
}

// Backend drives an SDL2 window and audio device. It doubles as an
// audio.Sink so the APU can be wired straight to the device queue.
type Backend struct {
	config   backend.Config
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	audioDev sdl.AudioDeviceID

	pixels [video.FrameWidth * video.FrameHeight]uint32
}

// New creates the SDL2 backend.
func New() *Backend {
	return &Backend{}
}

var _ audio.Sink = (*Backend)(nil)

// Init opens the window, renderer and audio device.
func (s *Backend) Init(config backend.Config) error {
	s.config = config
	scale := config.Scale
	if scale <= 0 {
		scale = 3
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("initializing SDL: %w", err)
	}

	window, err := sdl.CreateWindow(config.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(video.FrameWidth*scale), int32(video.FrameHeight*scale),
		sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	s.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	s.renderer = renderer

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888,
		sdl.TEXTUREACCESS_STREAMING, video.FrameWidth, video.FrameHeight)
	if err != nil {
		return fmt.Errorf("creating texture: %w", err)
	}
	s.texture = texture

	spec := sdl.AudioSpec{
		Freq:     audio.SampleRate,
		Format:   sdl.AUDIO_F32SYS,
		Channels: 2,
		Samples:  512,
	}
	dev, err := sdl.OpenAudioDevice("", false, &spec, nil, 0)
	if err != nil {
		// No audio device is not fatal; the machine keeps running silent.
		return nil
	}
	s.audioDev = dev
	sdl.PauseAudioDevice(dev, false)
	return nil
}

// PushSamples implements audio.Sink by queueing a frame of samples,
// skipping the push when the queue is running ahead of playback.
func (s *Backend) PushSamples(samples []float32) {
	if s.audioDev == 0 {
		return
	}
	const maxQueued = audio.SamplesPerFrame * 2 * 4 * 4 // ~4 frames of float32
	if sdl.GetQueuedAudioSize(s.audioDev) > maxQueued {
		return
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*4)
	_ = sdl.QueueAudio(s.audioDev, buf)
}

// Update uploads the frame and pumps the SDL event queue.
func (s *Backend) Update(frame *video.FrameBuffer) error {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch ev := event.(type) {
		case *sdl.QuitEvent:
			if s.config.OnQuit != nil {
				s.config.OnQuit()
			}
		case *sdl.KeyboardEvent:
			s.handleKey(ev)
		}
	}

	src := frame.Pixels()
	for i, index := range src {
		s.pixels[i] = shades[index&3]
	}
	if err := s.texture.Update(nil,
		unsafe.Pointer(&s.pixels[0]), video.FrameWidth*4); err != nil {
		return err
	}
	if err := s.renderer.Copy(s.texture, nil, nil); err != nil {
		return err
	}
	s.renderer.Present()
	return nil
}

func (s *Backend) handleKey(ev *sdl.KeyboardEvent) {
	if ev.Keysym.Sym == sdl.K_ESCAPE && ev.Type == sdl.KEYDOWN {
		if s.config.OnQuit != nil {
			s.config.OnQuit()
		}
		return
	}
	button, ok := keymap[ev.Keysym.Sym]
	if !ok || ev.Repeat != 0 || s.config.OnButton == nil {
		return
	}
	s.config.OnButton(button, ev.Type == sdl.KEYDOWN)
}

// Cleanup tears down the SDL resources.
func (s *Backend) Cleanup() error {
	if s.audioDev != 0 {
		sdl.CloseAudioDevice(s.audioDev)
	}
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
	return nil
}
