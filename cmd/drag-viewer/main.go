package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"

	"github.com/MSHADroo/drag/internal/config"
	"github.com/MSHADroo/drag/internal/server"
)

func main() {
	var cfgPath, addr, dataDir, staticDir string
	var backend, url, model string
	var sendSize, sendQ int
	var debug bool

	flag.StringVar(&cfgPath, "config", "", "path to a JSON config file (default: none)")
	flag.StringVar(&addr, "addr", "", "listen address (default 127.0.0.1:5000)")
	flag.StringVar(&dataDir, "data", "", "root directory of annotation folders")
	flag.StringVar(&staticDir, "static", "", "directory served at /static/data/")

	flag.StringVar(&backend, "backend", "", "caption backend: ollama or llamacpp")
	flag.StringVar(&url, "url", "", "caption server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.StringVar(&model, "model", "", "vision model name")
	flag.IntVar(&sendSize, "sendsize", 0, "max long side sent to the model (px), 0=config default")
	flag.IntVar(&sendQ, "sendq", 0, "JPEG quality for images sent to the model (1-100), 0=config default")

	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(log)

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.LoadFromFile(cfgPath)
		if err != nil {
			log.Error("failed to load config file", "path", cfgPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	// Flags win over file and environment.
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if dataDir != "" {
		cfg.Server.DataDir = dataDir
	}
	if staticDir != "" {
		cfg.Server.StaticDir = staticDir
	}
	if backend != "" {
		cfg.Caption.Backend = backend
	}
	if url != "" {
		cfg.Caption.URL = url
	}
	if model != "" {
		cfg.Caption.Model = model
	}
	if sendSize > 0 {
		cfg.Caption.SendMaxDim = sendSize
	}
	if sendQ > 0 {
		cfg.Caption.SendQuality = sendQ
	}

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if _, err := os.Stat(cfg.Server.DataDir); err != nil {
		log.Error("data directory is not accessible", "path", cfg.Server.DataDir, "error", err)
		os.Exit(1)
	}

	log.Info("starting annotation viewer",
		"addr", cfg.Server.Addr,
		"data", filepath.Clean(cfg.Server.DataDir),
		"backend", cfg.Caption.Backend,
		"model", cfg.Caption.Model)

	if err := server.New(cfg, log).Run(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
