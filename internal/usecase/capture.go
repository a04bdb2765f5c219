package usecase

import (
	"errors"

	"voicetutor/internal/domain"
	"voicetutor/internal/ports"
	"voicetutor/internal/protocol"
)

// startCapture acquires the audio resources for a connection. The render
// context opens first and outlives capture teardown so tutor audio keeps
// playing after the microphone stops.
func (c *VoiceController) startCapture(active *activeConn) error {
	render, err := c.platform.OpenRenderContext(c.cfg.Render)
	if err != nil {
		return domain.NewError(domain.ErrorCodeCapability, "audio output unavailable: "+err.Error())
	}

	device, err := c.platform.OpenCaptureDevice(active.ctx, c.cfg.Capture)
	if err != nil {
		// Release the context acquired earlier in this attempt.
		render.Close()
		if errors.Is(err, ports.ErrPermissionDenied) {
			return domain.NewError(domain.ErrorCodePermission, "microphone access denied: "+err.Error())
		}
		return domain.NewError(domain.ErrorCodeCapability, "audio capture unavailable: "+err.Error())
	}

	active.resMu.Lock()
	if active.closed.Load() {
		active.resMu.Unlock()
		// Disconnect resolved first; discard instead of retaining.
		device.Stop()
		render.Close()
		return nil
	}
	active.render = render
	active.capture = device
	active.playback = newPlaybackPipeline(render, c.events, c.reportError, c.log)
	active.pumpStarted = true
	active.resMu.Unlock()

	active.listening.Store(true)
	c.events.ListeningChanged(true)

	go c.pumpFrames(active, device)
	return nil
}

// pumpFrames forwards captured audio to the channel until the device or the
// connection stops.
func (c *VoiceController) pumpFrames(active *activeConn, device ports.CaptureDevice) {
	defer close(active.pumpDone)

	for {
		select {
		case frame, ok := <-device.Frames():
			if !ok {
				return
			}
			// Frames outside the open window are dropped.
			if c.State() != domain.StateOpen {
				continue
			}
			payload, err := protocol.NewAppendAudio(protocol.EncodePCM16(frame))
			if err != nil {
				c.log.Warn("failed to encode audio frame", "error", err)
				continue
			}
			if err := active.channel.Send(payload); err != nil {
				c.log.Debug("frame dropped after channel shutdown", "error", err)
				return
			}
		case <-active.pumpStop:
			return
		}
	}
}

// stopCapture halts the frame pump, then the device. Render resources are
// untouched so queued playback survives.
func (c *VoiceController) stopCapture(active *activeConn) {
	active.resMu.Lock()
	device := active.capture
	active.capture = nil
	started := active.pumpStarted
	active.resMu.Unlock()

	if device == nil {
		return
	}

	active.stopPump()
	if started {
		<-active.pumpDone
	}
	if err := device.Stop(); err != nil {
		c.reportError(domain.ErrorCodeAudio, "failed to stop audio capture cleanly")
	}

	if active.listening.Swap(false) {
		c.events.ListeningChanged(false)
	}
}
