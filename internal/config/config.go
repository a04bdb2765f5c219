package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config stores runtime configuration for the client.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Audio  AudioConfig  `yaml:"audio"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type AudioConfig struct {
	CaptureRate      int  `yaml:"capture_rate"`
	PlaybackRate     int  `yaml:"playback_rate"`
	Channels         int  `yaml:"channels"`
	FramesPerBuffer  int  `yaml:"frames_per_buffer"`
	EchoCancellation bool `yaml:"echo_cancellation"`
	NoiseSuppression bool `yaml:"noise_suppression"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// defaults follow the tutoring service contract: PCM16 mono at 24 kHz in
// both directions.
func defaults() Config {
	return Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8000",
		},
		Audio: AudioConfig{
			CaptureRate:      24000,
			PlaybackRate:     24000,
			Channels:         1,
			FramesPerBuffer:  4096,
			EchoCancellation: true,
			NoiseSuppression: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load resolves configuration from the config file, environment variables,
// and defaults. Environment variables win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	path := configFilePath()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %q: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	cfg.Server.BaseURL = envOrDefault("VOICETUTOR_SERVER_URL", cfg.Server.BaseURL)
	cfg.Server.Token = envOrDefault("VOICETUTOR_TOKEN", cfg.Server.Token)
	cfg.Audio.CaptureRate = envOrDefaultInt("VOICETUTOR_CAPTURE_RATE", cfg.Audio.CaptureRate)
	cfg.Audio.PlaybackRate = envOrDefaultInt("VOICETUTOR_PLAYBACK_RATE", cfg.Audio.PlaybackRate)
	cfg.Audio.Channels = envOrDefaultInt("VOICETUTOR_CHANNELS", cfg.Audio.Channels)
	cfg.Audio.FramesPerBuffer = envOrDefaultInt("VOICETUTOR_FRAMES_PER_BUFFER", cfg.Audio.FramesPerBuffer)
	cfg.Audio.EchoCancellation = envOrDefaultBool("VOICETUTOR_ECHO_CANCELLATION", cfg.Audio.EchoCancellation)
	cfg.Audio.NoiseSuppression = envOrDefaultBool("VOICETUTOR_NOISE_SUPPRESSION", cfg.Audio.NoiseSuppression)
	cfg.Log.Level = envOrDefault("VOICETUTOR_LOG_LEVEL", cfg.Log.Level)

	if cfg.Audio.CaptureRate <= 0 {
		cfg.Audio.CaptureRate = 24000
	}
	if cfg.Audio.PlaybackRate <= 0 {
		cfg.Audio.PlaybackRate = 24000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.FramesPerBuffer < 256 {
		cfg.Audio.FramesPerBuffer = 4096
	}

	return cfg, nil
}

// SlogLevel maps the configured level name onto a slog level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func configFilePath() string {
	if path := strings.TrimSpace(os.Getenv("VOICETUTOR_CONFIG")); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return firstExisting(
		filepath.Join(home, ".config", "voicetutor", "config.yaml"),
		filepath.Join(home, ".config", "voicetutor", "config.yml"),
	)
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
