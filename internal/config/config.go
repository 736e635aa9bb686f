// Package config collects the kiosk's environment surface and validates
// it at startup. Anything that would leave the kiosk deaf or blind is a
// hard failure here, not a surprise later.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Engine    string // "vosk" or "whisper"
	ModelPath string
	Language  string

	MediaDir      string
	PlayerBackend string // "vlc" or "mpv"
	PlayerBin     string
	MPVSocket     string

	MountRoots    []string
	PollInterval  time.Duration
	MinConfidence float64

	ChimePath string
	Socket    string
}

var defaultMountRoots = []string{
	"/media/usb", "/media/usb0", "/media/usb1", "/mnt/usb", "/media/pi",
}

// SystemCommands is the fixed manifest of built-in command clips expected
// under the media directory.
var SystemCommands = []string{"coffee", "insect", "grasshopper"}

const (
	IdleClip    = "listening.mp4"
	WelcomeClip = "welcome.mp4"
)

func Load() (Config, error) {
	cfg := Config{
		Engine:        getenv("VOICEBOX_ENGINE", "vosk"),
		ModelPath:     os.Getenv("VOICEBOX_MODEL_PATH"),
		Language:      getenv("VOICEBOX_LANGUAGE", "en"),
		MediaDir:      getenv("VOICEBOX_MEDIA_DIR", "./videos"),
		PlayerBackend: getenv("VOICEBOX_PLAYER", "vlc"),
		PlayerBin:     os.Getenv("VOICEBOX_PLAYER_BIN"),
		MPVSocket:     getenv("VOICEBOX_MPV_SOCKET", "/tmp/voicebox-mpv.sock"),
		ChimePath:     os.Getenv("VOICEBOX_CHIME"),
		Socket:        getenv("VOICEBOX_SOCKET", "/tmp/voicebox.sock"),
		PollInterval:  2 * time.Second,
		MinConfidence: 0.7,
		MountRoots:    defaultMountRoots,
	}

	if v := os.Getenv("VOICEBOX_MOUNT_ROOTS"); v != "" {
		cfg.MountRoots = nil
		for _, root := range strings.Split(v, ",") {
			if root = strings.TrimSpace(root); root != "" {
				cfg.MountRoots = append(cfg.MountRoots, root)
			}
		}
	}
	if v := os.Getenv("VOICEBOX_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid VOICEBOX_POLL_INTERVAL %q", v)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("VOICEBOX_MIN_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return cfg, fmt.Errorf("invalid VOICEBOX_MIN_CONFIDENCE %q", v)
		}
		cfg.MinConfidence = f
	}

	switch cfg.Engine {
	case "vosk", "whisper":
	default:
		return cfg, fmt.Errorf("unknown engine %q", cfg.Engine)
	}

	switch cfg.PlayerBackend {
	case "vlc":
		if cfg.PlayerBin == "" {
			cfg.PlayerBin = "cvlc"
		}
	case "mpv":
		if cfg.PlayerBin == "" {
			cfg.PlayerBin = "mpv"
		}
	default:
		return cfg, fmt.Errorf("unknown player backend %q", cfg.PlayerBackend)
	}

	if cfg.ModelPath == "" {
		return cfg, fmt.Errorf("VOICEBOX_MODEL_PATH not set")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return cfg, fmt.Errorf("recognition model missing: %w", err)
	}

	return cfg, nil
}

// SystemManifest maps the built-in commands to their expected clip paths.
func (c Config) SystemManifest() map[string]string {
	manifest := make(map[string]string, len(SystemCommands))
	for _, cmd := range SystemCommands {
		manifest[cmd] = filepath.Join(c.MediaDir, cmd+".mp4")
	}
	return manifest
}

func (c Config) IdlePath() string    { return filepath.Join(c.MediaDir, IdleClip) }
func (c Config) WelcomePath() string { return filepath.Join(c.MediaDir, WelcomeClip) }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
