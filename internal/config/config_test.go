package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"llamacpp backend", func(c *Config) { c.Caption.Backend = "llamacpp" }, false},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, true},
		{"empty data dir", func(c *Config) { c.Server.DataDir = "" }, true},
		{"unknown backend", func(c *Config) { c.Caption.Backend = "blip" }, true},
		{"empty model", func(c *Config) { c.Caption.Model = "" }, true},
		{"quality too high", func(c *Config) { c.Caption.SendQuality = 150 }, true},
		{"negative max dim", func(c *Config) { c.Caption.SendMaxDim = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.json")

	cfg := Default()
	cfg.Server.Addr = "127.0.0.1:8123"
	cfg.Caption.Model = "minicpm-v"
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Server.Addr != "127.0.0.1:8123" || loaded.Caption.Model != "minicpm-v" {
		t.Errorf("loaded config = %+v", loaded)
	}
	// Fields absent from the file keep defaults.
	if loaded.Caption.SendQuality != 85 {
		t.Errorf("send quality = %d, want default 85", loaded.Caption.SendQuality)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DRAG_ADDR", "0.0.0.0:9999")
	t.Setenv("DRAG_CAPTION_MODEL", "qwen-vl")
	t.Setenv("DRAG_CAPTION_SEND_FORMAT", "png")
	t.Setenv("DRAG_CAPTION_SEND_MAX_DIM", "1024")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.Server.Addr != "0.0.0.0:9999" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Caption.Model != "qwen-vl" {
		t.Errorf("model = %q", cfg.Caption.Model)
	}
	if cfg.Caption.SendFormat != "png" {
		t.Errorf("send format = %q", cfg.Caption.SendFormat)
	}
	if cfg.Caption.SendMaxDim != 1024 {
		t.Errorf("send max dim = %d", cfg.Caption.SendMaxDim)
	}
	// Untouched fields keep their values.
	if cfg.Caption.Backend != "ollama" {
		t.Errorf("backend = %q", cfg.Caption.Backend)
	}
}
