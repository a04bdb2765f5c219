package usecase

import (
	"log/slog"
	"sync"

	"voicetutor/internal/domain"
	"voicetutor/internal/ports"
)

// playbackPipeline renders tutor audio strictly in arrival order. Incremental
// PCM chunks queue behind one advancing goroutine so chunks never overlap;
// complete clips render on their own stream inside the shared render context.
type playbackPipeline struct {
	render ports.RenderContext
	events ports.EventSink
	report func(code domain.ErrorCode, detail string)
	log    *slog.Logger

	mu          sync.Mutex
	queue       [][]int16
	advancing   bool
	clipPlaying bool
	closed      bool
}

func newPlaybackPipeline(render ports.RenderContext, events ports.EventSink, report func(domain.ErrorCode, string), log *slog.Logger) *playbackPipeline {
	return &playbackPipeline{render: render, events: events, report: report, log: log}
}

// Enqueue appends one PCM chunk and starts the advancer when idle.
func (p *playbackPipeline) Enqueue(samples []int16) {
	if len(samples) == 0 {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.queue = append(p.queue, samples)
	if p.advancing {
		p.mu.Unlock()
		return
	}
	p.advancing = true
	p.mu.Unlock()

	p.events.SpeakingChanged(true)
	go p.advance()
}

// advance drains the queue one chunk at a time. At most one advancer runs.
func (p *playbackPipeline) advance() {
	for {
		p.mu.Lock()
		if p.closed || len(p.queue) == 0 {
			drained := !p.closed
			p.advancing = false
			p.mu.Unlock()
			if drained {
				p.events.SpeakingChanged(false)
			}
			return
		}
		chunk := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if err := p.render.PlayPCM(chunk); err != nil {
			p.log.Debug("chunk render interrupted", "error", err)
		}
	}
}

// PlayClip renders one complete clip asynchronously.
func (p *playbackPipeline) PlayClip(clip []byte) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.clipPlaying = true
	p.mu.Unlock()

	p.events.SpeakingChanged(true)
	go func() {
		err := p.render.PlayClip(clip)

		p.mu.Lock()
		p.clipPlaying = false
		closed := p.closed
		p.mu.Unlock()

		if err != nil && !closed {
			p.report(domain.ErrorCodeAudio, "failed to play tutor audio: "+err.Error())
		}
		if !closed {
			p.events.SpeakingChanged(false)
		}
	}()
}

// Speaking reports whether any audio is rendering or queued.
func (p *playbackPipeline) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advancing || p.clipPlaying || len(p.queue) > 0
}

func (p *playbackPipeline) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Shutdown discards pending audio and stops reporting. In-flight renders
// finish against the render context on their own.
func (p *playbackPipeline) Shutdown() {
	p.mu.Lock()
	wasActive := p.advancing || p.clipPlaying || len(p.queue) > 0
	p.closed = true
	p.queue = nil
	p.advancing = false
	p.clipPlaying = false
	p.mu.Unlock()

	if wasActive {
		p.events.SpeakingChanged(false)
	}
}
