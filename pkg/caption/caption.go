// Package caption describes frame pairs in natural language through a
// vision model backend. The model is an opaque external collaborator behind
// a single Query method; this package owns prompt, image encoding, and the
// process-wide service instance.
package caption

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/MSHADroo/drag/pkg/client"
	"github.com/MSHADroo/drag/pkg/llamacpp"
	"github.com/MSHADroo/drag/pkg/ollama"
	"github.com/MSHADroo/drag/pkg/processing"
)

// DefaultPrompt asks the model for a short factual caption suitable for
// training data.
const DefaultPrompt = `Describe this image in one short factual sentence. ` +
	`Mention the main subject and what it is doing. No speculation, no lists, no markdown.`

// Config selects and tunes the vision backend.
type Config struct {
	Backend     string // "ollama" or "llamacpp"
	URL         string // server URL; empty selects the backend default
	Model       string
	SendFormat  string // image format sent to the model: "jpg" or "png"
	SendMaxDim  int    // long-side limit in pixels, 0 = original size
	SendQuality int    // JPEG quality for the encoded image
}

// Result is the outcome of captioning a frame pair.
type Result struct {
	Description1 string `json:"description1"`
	Description2 string `json:"description2"`
	Combined     string `json:"combined_description"`
}

// Service captions images through a vision client. Calls are synchronous and
// blocking for the duration of model inference; failures are reported to the
// caller and never retried.
type Service struct {
	client    client.VisionClient
	processor *processing.Processor
	cfg       Config
}

// NewService builds a captioning service for the configured backend.
func NewService(cfg Config) (*Service, error) {
	var (
		vc  client.VisionClient
		err error
	)
	switch cfg.Backend {
	case "ollama":
		url := cfg.URL
		if url == "" {
			url = "http://localhost:11434"
		}
		vc, err = ollama.NewClient(url)
	case "llamacpp":
		vc, err = llamacpp.NewClient(cfg.URL)
	default:
		return nil, fmt.Errorf("unknown caption backend: %q (use ollama or llamacpp)", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Backend, err)
	}
	return NewServiceWithClient(vc, cfg), nil
}

// NewServiceWithClient wires an explicit vision client, mainly for tests.
func NewServiceWithClient(vc client.VisionClient, cfg Config) *Service {
	if cfg.SendFormat == "" {
		cfg.SendFormat = "jpg"
	}
	if cfg.SendQuality == 0 {
		cfg.SendQuality = 85
	}
	return &Service{client: vc, processor: processing.NewProcessor(), cfg: cfg}
}

// Describe returns a natural language description of one image.
func (s *Service) Describe(ctx context.Context, img image.Image) (string, error) {
	imgB64, err := s.processor.PrepareImageForModel(img, s.cfg.SendFormat, s.cfg.SendMaxDim, s.cfg.SendQuality)
	if err != nil {
		return "", fmt.Errorf("failed to encode image for model: %w", err)
	}
	desc, err := s.client.Query(ctx, s.cfg.Model, DefaultPrompt, imgB64)
	if err != nil {
		return "", fmt.Errorf("captioning failed: %w", err)
	}
	return strings.TrimSpace(desc), nil
}

// DescribePair captions both frames of a pair and combines the two
// descriptions into one caption.
func (s *Service) DescribePair(ctx context.Context, frame1, frame2 image.Image) (Result, error) {
	desc1, err := s.Describe(ctx, frame1)
	if err != nil {
		return Result{}, fmt.Errorf("frame 1: %w", err)
	}
	desc2, err := s.Describe(ctx, frame2)
	if err != nil {
		return Result{}, fmt.Errorf("frame 2: %w", err)
	}
	return Result{
		Description1: desc1,
		Description2: desc2,
		Combined:     fmt.Sprintf("First frame: %s. Second frame: %s", trimPeriod(desc1), trimPeriod(desc2)),
	}, nil
}

func trimPeriod(s string) string {
	return strings.TrimRight(s, ".")
}

var (
	defaultOnce sync.Once
	defaultSvc  *Service
	defaultErr  error
)

// Default returns the process-wide captioning service, creating it on first
// call. The first configuration wins; there is no reinitialization path.
func Default(cfg Config) (*Service, error) {
	defaultOnce.Do(func() {
		defaultSvc, defaultErr = NewService(cfg)
	})
	return defaultSvc, defaultErr
}
