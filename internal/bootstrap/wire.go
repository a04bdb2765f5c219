package bootstrap

import (
	"log/slog"
	"os"

	"voicetutor/internal/audio"
	"voicetutor/internal/config"
	"voicetutor/internal/ports"
	"voicetutor/internal/providers/tutorws"
	"voicetutor/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.VoiceController
	Provider   *tutorws.Provider
	Config     config.Config
	Logger     *slog.Logger
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))

	provider := tutorws.NewProvider(tutorws.Config{
		BaseURL: cfg.Server.BaseURL,
		Token:   cfg.Server.Token,
	}, logger.With("component", "tutorws"))

	controller := usecase.NewVoiceController(
		audio.NewPlatform(),
		provider,
		eventSink,
		usecase.Config{
			Capture: ports.CaptureConfig{
				SampleRate:       cfg.Audio.CaptureRate,
				Channels:         cfg.Audio.Channels,
				FramesPerBuffer:  cfg.Audio.FramesPerBuffer,
				EchoCancellation: cfg.Audio.EchoCancellation,
				NoiseSuppression: cfg.Audio.NoiseSuppression,
			},
			Render: ports.RenderConfig{
				SampleRate:      cfg.Audio.PlaybackRate,
				Channels:        cfg.Audio.Channels,
				FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			},
		},
		logger.With("component", "voice"),
	)

	return Services{Controller: controller, Provider: provider, Config: cfg, Logger: logger}, nil
}
