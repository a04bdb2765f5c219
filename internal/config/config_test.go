package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// clearClientEnv blanks every override so tests only see what they set.
func clearClientEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"VOICETUTOR_CONFIG",
		"VOICETUTOR_SERVER_URL",
		"VOICETUTOR_TOKEN",
		"VOICETUTOR_CAPTURE_RATE",
		"VOICETUTOR_PLAYBACK_RATE",
		"VOICETUTOR_CHANNELS",
		"VOICETUTOR_FRAMES_PER_BUFFER",
		"VOICETUTOR_ECHO_CANCELLATION",
		"VOICETUTOR_NOISE_SUPPRESSION",
		"VOICETUTOR_LOG_LEVEL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearClientEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.BaseURL != "http://localhost:8000" || cfg.Server.Token != "" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Audio.CaptureRate != 24000 || cfg.Audio.PlaybackRate != 24000 {
		t.Fatalf("unexpected audio rates: %+v", cfg.Audio)
	}
	if cfg.Audio.Channels != 1 || cfg.Audio.FramesPerBuffer != 4096 {
		t.Fatalf("unexpected audio buffers: %+v", cfg.Audio)
	}
	if !cfg.Audio.EchoCancellation || !cfg.Audio.NoiseSuppression {
		t.Fatalf("expected audio processing on by default: %+v", cfg.Audio)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level: %q", cfg.Log.Level)
	}
}

func TestLoadUsesConfigFileFallbackOrder(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearClientEnv(t)

	configDir := filepath.Join(home, ".config", "voicetutor")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	ymlPath := filepath.Join(configDir, "config.yml")
	if err := os.WriteFile(ymlPath, []byte("server:\n  token: yml-token\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Token != "yml-token" {
		t.Fatalf("expected yml fallback, got %q", cfg.Server.Token)
	}

	yamlPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(yamlPath, []byte("server:\n  token: yaml-token\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg2, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg2.Server.Token != "yaml-token" {
		t.Fatalf("expected yaml priority, got %q", cfg2.Server.Token)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearClientEnv(t)

	path := filepath.Join(t.TempDir(), "voicetutor.yaml")
	body := `server:
  base_url: https://tutor.example.com
  token: file-token
audio:
  capture_rate: 48000
  playback_rate: 22050
  channels: 2
  frames_per_buffer: 2048
  echo_cancellation: false
  noise_suppression: false
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("VOICETUTOR_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.BaseURL != "https://tutor.example.com" || cfg.Server.Token != "file-token" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Audio.CaptureRate != 48000 || cfg.Audio.PlaybackRate != 22050 {
		t.Fatalf("unexpected audio rates: %+v", cfg.Audio)
	}
	if cfg.Audio.Channels != 2 || cfg.Audio.FramesPerBuffer != 2048 {
		t.Fatalf("unexpected audio buffers: %+v", cfg.Audio)
	}
	if cfg.Audio.EchoCancellation || cfg.Audio.NoiseSuppression {
		t.Fatalf("expected audio processing off: %+v", cfg.Audio)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.Log.Level)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearClientEnv(t)

	path := filepath.Join(t.TempDir(), "voicetutor.yaml")
	if err := os.WriteFile(path, []byte("server:\n  base_url: https://file.example.com\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("VOICETUTOR_CONFIG", path)
	t.Setenv("VOICETUTOR_SERVER_URL", "https://env.example.com")
	t.Setenv("VOICETUTOR_TOKEN", "env-token")
	t.Setenv("VOICETUTOR_CAPTURE_RATE", "16000")
	t.Setenv("VOICETUTOR_PLAYBACK_RATE", "44100")
	t.Setenv("VOICETUTOR_CHANNELS", "2")
	t.Setenv("VOICETUTOR_FRAMES_PER_BUFFER", "1024")
	t.Setenv("VOICETUTOR_ECHO_CANCELLATION", "off")
	t.Setenv("VOICETUTOR_NOISE_SUPPRESSION", "no")
	t.Setenv("VOICETUTOR_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.BaseURL != "https://env.example.com" || cfg.Server.Token != "env-token" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Audio.CaptureRate != 16000 || cfg.Audio.PlaybackRate != 44100 {
		t.Fatalf("unexpected audio rates: %+v", cfg.Audio)
	}
	if cfg.Audio.Channels != 2 || cfg.Audio.FramesPerBuffer != 1024 {
		t.Fatalf("unexpected audio buffers: %+v", cfg.Audio)
	}
	if cfg.Audio.EchoCancellation || cfg.Audio.NoiseSuppression {
		t.Fatalf("expected audio processing off: %+v", cfg.Audio)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("unexpected log level: %q", cfg.Log.Level)
	}
}

func TestLoadInvalidNumericValuesFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearClientEnv(t)
	t.Setenv("VOICETUTOR_CAPTURE_RATE", "bad")
	t.Setenv("VOICETUTOR_PLAYBACK_RATE", "-5")
	t.Setenv("VOICETUTOR_CHANNELS", "-1")
	t.Setenv("VOICETUTOR_FRAMES_PER_BUFFER", "5")
	t.Setenv("VOICETUTOR_ECHO_CANCELLATION", "not-bool")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Audio.CaptureRate != 24000 {
		t.Fatalf("expected default capture rate, got %d", cfg.Audio.CaptureRate)
	}
	if cfg.Audio.PlaybackRate != 24000 {
		t.Fatalf("expected default playback rate, got %d", cfg.Audio.PlaybackRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Fatalf("expected default channels, got %d", cfg.Audio.Channels)
	}
	if cfg.Audio.FramesPerBuffer != 4096 {
		t.Fatalf("expected frames fallback, got %d", cfg.Audio.FramesPerBuffer)
	}
	if !cfg.Audio.EchoCancellation {
		t.Fatalf("expected default echo cancellation true")
	}
}

func TestLoadRejectsMalformedConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearClientEnv(t)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("{{{"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("VOICETUTOR_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSlogLevelMapping(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{level: "debug", want: slog.LevelDebug},
		{level: "info", want: slog.LevelInfo},
		{level: "warn", want: slog.LevelWarn},
		{level: "warning", want: slog.LevelWarn},
		{level: "error", want: slog.LevelError},
		{level: "", want: slog.LevelInfo},
		{level: "verbose", want: slog.LevelInfo},
		{level: " DEBUG ", want: slog.LevelDebug},
	}

	for _, tc := range cases {
		if got := (LogConfig{Level: tc.level}).SlogLevel(); got != tc.want {
			t.Fatalf("SlogLevel(%q) = %v, want %v", tc.level, got, tc.want)
		}
	}
}
