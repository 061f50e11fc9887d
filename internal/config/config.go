package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration for the viewer and the
// annotation tooling.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Caption CaptionConfig `json:"caption"`
}

// ServerConfig holds configuration for the viewer web server.
type ServerConfig struct {
	Addr      string `json:"addr"`
	DataDir   string `json:"data_dir"`
	StaticDir string `json:"static_dir"`
}

// CaptionConfig holds configuration for the captioning backend.
type CaptionConfig struct {
	Backend     string `json:"backend"`
	URL         string `json:"url"`
	Model       string `json:"model"`
	SendFormat  string `json:"send_format"`
	SendMaxDim  int    `json:"send_max_dim"`
	SendQuality int    `json:"send_quality"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      "127.0.0.1:5000",
			DataDir:   "data",
			StaticDir: filepath.Join("static", "data"),
		},
		Caption: CaptionConfig{
			Backend:     "ollama",
			URL:         "",
			Model:       "llava",
			SendFormat:  "jpg",
			SendMaxDim:  1536,
			SendQuality: 85,
		},
	}
}

// LoadFromFile loads configuration from a JSON file.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file.
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment variables onto the configuration, loading a
// .env file first when one exists next to the working directory or the
// executable.
func (c *Config) ApplyEnv() {
	envPaths := []string{".env"}
	if execPath, err := os.Executable(); err == nil {
		envPaths = append(envPaths, filepath.Join(filepath.Dir(execPath), ".env"))
	}
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			godotenv.Load(envPath)
			break
		}
	}

	setString(&c.Server.Addr, "DRAG_ADDR")
	setString(&c.Server.DataDir, "DRAG_DATA_DIR")
	setString(&c.Server.StaticDir, "DRAG_STATIC_DIR")
	setString(&c.Caption.Backend, "DRAG_CAPTION_BACKEND")
	setString(&c.Caption.URL, "DRAG_CAPTION_URL")
	setString(&c.Caption.Model, "DRAG_CAPTION_MODEL")
	setString(&c.Caption.SendFormat, "DRAG_CAPTION_SEND_FORMAT")
	setInt(&c.Caption.SendMaxDim, "DRAG_CAPTION_SEND_MAX_DIM")
	setInt(&c.Caption.SendQuality, "DRAG_CAPTION_SEND_QUALITY")
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = parsed
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	if c.Server.DataDir == "" {
		return fmt.Errorf("server.data_dir cannot be empty")
	}

	switch c.Caption.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("caption.backend must be ollama or llamacpp")
	}
	if c.Caption.Model == "" {
		return fmt.Errorf("caption.model cannot be empty")
	}
	if c.Caption.SendQuality < 1 || c.Caption.SendQuality > 100 {
		return fmt.Errorf("caption.send_quality must be between 1 and 100")
	}
	if c.Caption.SendMaxDim < 0 {
		return fmt.Errorf("caption.send_max_dim must not be negative")
	}

	return nil
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "drag-annotator", "config.json")
}
