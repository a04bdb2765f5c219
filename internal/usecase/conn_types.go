package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"voicetutor/internal/ports"
)

// activeConn carries the live resources of one voice session attempt.
type activeConn struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	// resMu guards the resource fields below.
	resMu       sync.Mutex
	channel     ports.VoiceChannel
	capture     ports.CaptureDevice
	render      ports.RenderContext
	playback    *playbackPipeline
	pumpStarted bool

	closed    atomic.Bool
	listening atomic.Bool

	teardownOnce sync.Once
	pumpStopOnce sync.Once

	pumpStop     chan struct{}
	pumpDone     chan struct{}
	dispatchDone chan struct{}
}

func newActiveConn(id string, ctx context.Context, cancel context.CancelFunc) *activeConn {
	return &activeConn{
		id:           id,
		ctx:          ctx,
		cancel:       cancel,
		pumpStop:     make(chan struct{}),
		pumpDone:     make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}
}

// stopPump detaches the frame pump; safe to call any number of times.
func (a *activeConn) stopPump() {
	a.pumpStopOnce.Do(func() {
		close(a.pumpStop)
	})
}

func (a *activeConn) playbackPipeline() *playbackPipeline {
	a.resMu.Lock()
	defer a.resMu.Unlock()
	return a.playback
}
