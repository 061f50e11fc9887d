package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"

	"github.com/MSHADroo/drag/pkg/processing"
	"github.com/MSHADroo/drag/pkg/scanner"
)

func main() {
	var root, overlayDir, ext string
	var quality int
	var lossless bool
	var debug bool

	flag.StringVar(&root, "root", "data", "root directory of annotation folders")
	flag.StringVar(&overlayDir, "overlays", "", "write a blended frame overlay per annotated pair into this directory")
	flag.StringVar(&ext, "ext", "jpg", "overlay format: jpg|png|webp")
	flag.IntVar(&quality, "quality", 90, "JPEG/WebP overlay quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP overlay lossless mode")
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

	scan := &scanner.Scanner{Log: log}

	uncaptioned, captioned, err := scan.Classify(root)
	if err != nil {
		log.Error("failed to scan annotations", "root", root, "error", err)
		os.Exit(1)
	}
	groups, err := scan.Unannotated(root)
	if err != nil {
		log.Error("failed to scan unannotated folders", "root", root, "error", err)
		os.Exit(1)
	}

	fmt.Printf("root: %s\n", filepath.Clean(root))
	fmt.Printf("  annotated, captioned:   %d\n", len(captioned))
	fmt.Printf("  annotated, uncaptioned: %d\n", len(uncaptioned))
	fmt.Printf("  image folders with no annotation: %d\n", len(groups))
	for _, g := range groups {
		fmt.Printf("    %s (%d images)\n", g.DirectoryName, len(g.Images))
	}

	if overlayDir == "" {
		return
	}
	if err := os.MkdirAll(overlayDir, 0o755); err != nil {
		log.Error("failed to create overlay directory", "path", overlayDir, "error", err)
		os.Exit(1)
	}

	proc := processing.NewProcessor()
	entries := append(append([]scanner.Entry{}, uncaptioned...), captioned...)
	written := 0
	for _, e := range entries {
		img1, err := proc.LoadImage(filepath.Join(root, filepath.FromSlash(e.Frame1Image)))
		if err != nil {
			log.Warn("skipping pair, frame 1 unreadable", "frame", e.Frame1Image, "error", err)
			continue
		}
		img2, err := proc.LoadImage(filepath.Join(root, filepath.FromSlash(e.Frame2Image)))
		if err != nil {
			log.Warn("skipping pair, frame 2 unreadable", "frame", e.Frame2Image, "error", err)
			continue
		}
		out := filepath.Join(overlayDir, fmt.Sprintf("%s_overlay.%s", e.DirectoryName, ext))
		if err := proc.SaveImage(proc.CombineFrames(img1, img2), out, ext, quality, lossless); err != nil {
			log.Warn("failed to write overlay", "path", out, "error", err)
			continue
		}
		written++
	}
	log.Info("overlay pass complete", "written", written, "pairs", len(entries))
}
