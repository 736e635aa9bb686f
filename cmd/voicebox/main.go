package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"voicebox/internal/audio"
	"voicebox/internal/config"
	"voicebox/internal/ipc"
	"voicebox/internal/kiosk"
	"voicebox/internal/listen"
	"voicebox/internal/media"
	"voicebox/internal/player"
	"voicebox/internal/registry"
	"voicebox/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	cfg, err := config.Load()
	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(1)
	}

	if err := audio.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer audio.Terminate()

	if err := audio.Verify(); err != nil {
		log.Error("Audio input device unusable", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded audio device")

	rec, err := newRecognizer(cfg)
	if err != nil {
		log.Error("Failed to init recognizer", "engine", cfg.Engine, "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	log.Debug("Loaded recognizer", "engine", cfg.Engine)

	var play player.Player
	if cfg.PlayerBackend == "mpv" {
		play = player.NewMPV(cfg.PlayerBin, cfg.MPVSocket)
	} else {
		play = player.NewController(cfg.PlayerBin)
	}

	reg := registry.New()
	mon := media.NewMonitor(reg, cfg.MountRoots, cfg.PollInterval)
	gate := kiosk.NewGate()

	loop := listen.NewLoop(reg, rec, gate, listen.Config{
		Matching: listen.MatchOptions{
			MaxWords: media.MaxCommandWords,
			Aliases:  listen.DefaultAliases,
		},
	})

	capture := audio.NewCapture(loop.Push)

	k := kiosk.New(cfg, gate, reg, mon, play, loop)
	k.SetCapture(capture.Run)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := media.WatchMounts(ctx, mon, cfg.MountRoots); err != nil {
		log.Warn("Mount watcher unavailable, polling only", "err", err)
	}

	srv, err := ipc.StartServer(cfg.Socket, k.HandleControl)
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	log.Info("Boot up - successful")

	if err := k.Run(ctx); err != nil {
		log.Error("Kiosk stopped", "err", err)
		os.Exit(1)
	}
}

func newRecognizer(cfg config.Config) (stt.Recognizer, error) {
	if cfg.Engine == "whisper" {
		return stt.NewWhisper(cfg.ModelPath, cfg.Language)
	}
	return stt.NewVosk(cfg.ModelPath, cfg.MinConfidence)
}
