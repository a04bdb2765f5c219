// Package audio binds the host audio devices through PortAudio.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voicetutor/internal/ports"
)

// frameQueueDepth bounds buffered capture frames between the device callback
// and the consumer.
const frameQueueDepth = 16

// Platform implements ports.AudioPlatform on top of PortAudio.
type Platform struct{}

// NewPlatform returns the host audio platform.
func NewPlatform() *Platform {
	return &Platform{}
}

// Supported probes for usable default capture and playback devices.
func (p *Platform) Supported() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio subsystem unavailable: %w", err)
	}
	defer portaudio.Terminate()

	if _, err := portaudio.DefaultInputDevice(); err != nil {
		return fmt.Errorf("no default capture device: %w", err)
	}
	if _, err := portaudio.DefaultOutputDevice(); err != nil {
		return fmt.Errorf("no default playback device: %w", err)
	}
	return nil
}

// OpenCaptureDevice opens the default microphone and starts streaming frames.
// Echo cancellation and noise suppression stay host defaults; PortAudio
// exposes no portable switches for them.
func (p *Platform) OpenCaptureDevice(ctx context.Context, cfg ports.CaptureConfig) (ports.CaptureDevice, error) {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 24000
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	framesPerBuffer := cfg.FramesPerBuffer
	if framesPerBuffer <= 0 {
		framesPerBuffer = 4096
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio subsystem unavailable: %w", err)
	}

	in := make([]int32, framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(rate), framesPerBuffer, in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ports.ErrPermissionDenied, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ports.ErrPermissionDenied, err)
	}

	device := &captureDevice{
		stream: stream,
		in:     in,
		frames: make(chan []int16, frameQueueDepth),
		stop:   make(chan struct{}),
	}
	go device.run()
	return device, nil
}

type captureDevice struct {
	stream   *portaudio.Stream
	in       []int32
	frames   chan []int16
	stop     chan struct{}
	stopOnce sync.Once
	stopErr  error
}

func (d *captureDevice) Frames() <-chan []int16 {
	return d.frames
}

func (d *captureDevice) run() {
	defer close(d.frames)
	for {
		select {
		case <-d.stop:
			return
		default:
		}
		if err := d.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			return
		}
		frame := make([]int16, len(d.in))
		for i, sample := range d.in {
			frame[i] = int16(sample >> 16)
		}
		select {
		case d.frames <- frame:
		default:
			// Consumer is behind; drop the frame rather than stall the device.
		}
	}
}

func (d *captureDevice) Stop() error {
	d.stopOnce.Do(func() {
		close(d.stop)
		if err := d.stream.Stop(); err != nil {
			d.stopErr = err
		}
		if err := d.stream.Close(); err != nil && d.stopErr == nil {
			d.stopErr = err
		}
		portaudio.Terminate()
	})
	return d.stopErr
}

// OpenRenderContext opens the default output device for incremental PCM
// playback. Complete clips open short-lived streams at their own rate.
func (p *Platform) OpenRenderContext(cfg ports.RenderConfig) (ports.RenderContext, error) {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 24000
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	framesPerBuffer := cfg.FramesPerBuffer
	if framesPerBuffer <= 0 {
		framesPerBuffer = 4096
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio subsystem unavailable: %w", err)
	}

	out := make([]int16, framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(rate), framesPerBuffer, out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open playback stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start playback stream: %w", err)
	}

	return &renderContext{
		stream:          stream,
		out:             out,
		framesPerBuffer: framesPerBuffer,
	}, nil
}

type renderContext struct {
	mu              sync.Mutex
	stream          *portaudio.Stream
	out             []int16
	framesPerBuffer int
	closed          bool
}

// PlayPCM renders samples on the persistent stream and blocks until the
// final chunk was written. The lock spans the whole render so Close cannot
// interleave mid-chunk.
func (r *renderContext) PlayPCM(samples []int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ports.ErrRenderClosed
	}
	for len(samples) > 0 {
		n := copy(r.out, samples)
		for i := n; i < len(r.out); i++ {
			r.out[i] = 0
		}
		if err := writeTolerant(r.stream); err != nil {
			return fmt.Errorf("render chunk: %w", err)
		}
		samples = samples[n:]
	}
	return nil
}

// PlayClip decodes an MP3 clip and renders it on a dedicated stream opened at
// the clip's own sample rate and channel count.
func (r *renderContext) PlayClip(clip []byte) error {
	samples, sampleRate, channels, err := DecodeClip(clip)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ports.ErrRenderClosed
	}

	out := make([]int16, r.framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), r.framesPerBuffer, out)
	if err != nil {
		return fmt.Errorf("open clip stream: %w", err)
	}
	defer func() {
		stream.Stop()
		stream.Close()
	}()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("start clip stream: %w", err)
	}

	for len(samples) > 0 {
		n := copy(out, samples)
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := writeTolerant(stream); err != nil {
			return fmt.Errorf("render clip: %w", err)
		}
		samples = samples[n:]
	}
	return nil
}

// writeTolerant writes the stream buffer, tolerating underflow on the first
// write after a gap.
func writeTolerant(stream *portaudio.Stream) error {
	if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
		return err
	}
	return nil
}

func (r *renderContext) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if err := r.stream.Stop(); err != nil {
		firstErr = err
	}
	if err := r.stream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	portaudio.Terminate()
	return firstErr
}
