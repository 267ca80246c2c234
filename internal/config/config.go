// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// LIMITS
// =============================================================================

// Generation parameter bounds shared by the settings page, the CLI flags and
// validation.
const (
	MinMaxTokens     = 1
	MaxMaxTokens     = 2048
	DefaultMaxTokens = 256

	MinTemperature     = 0.1
	MaxTemperature     = 2.0
	TemperatureStep    = 0.1
	DefaultTemperature = 0.7

	// DefaultTickInterval is how often the UI drains the token queue. It is a
	// refresh rate, not a protocol requirement, and may be tuned freely.
	DefaultTickInterval = 20 * time.Millisecond
)

// Backend names accepted by inference.backend.
const (
	BackendLlama  = "llama"
	BackendOllama = "ollama"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete WinChi configuration.
type Config struct {
	// General settings
	Version string `toml:"version" yaml:"version" json:"version"`

	// Inference engine configuration
	Inference InferenceConfig `toml:"inference" yaml:"inference" json:"inference"`

	// Default generation parameters for a new session
	Generation GenerationConfig `toml:"generation" yaml:"generation" json:"generation"`

	// Ollama backend configuration
	Ollama OllamaConfig `toml:"ollama" yaml:"ollama" json:"ollama"`

	// UI configuration
	UI UIConfig `toml:"ui" yaml:"ui" json:"ui"`

	// Log configuration
	Log LogConfig `toml:"log" yaml:"log" json:"log"`
}

// InferenceConfig selects and tunes the inference engine.
type InferenceConfig struct {
	// Backend is "llama" (in-process llama.cpp) or "ollama" (local server)
	Backend string `toml:"backend" yaml:"backend" json:"backend"`
	// ModelPath is an optional GGUF file loaded at startup
	ModelPath string `toml:"model_path" yaml:"model_path" json:"model_path"`
	// LibPath is the directory holding the llama.cpp shared libraries
	LibPath string `toml:"lib_path" yaml:"lib_path" json:"lib_path"`
	// GPULayers is the number of layers to offload (-1 = all, 0 = CPU only)
	GPULayers int `toml:"gpu_layers" yaml:"gpu_layers" json:"gpu_layers"`
	// ContextSize is the context window in tokens
	ContextSize int `toml:"context_size" yaml:"context_size" json:"context_size"`
	// BatchSize is the prompt processing batch size in tokens
	BatchSize int `toml:"batch_size" yaml:"batch_size" json:"batch_size"`
}

// GenerationConfig holds the initial session parameters.
type GenerationConfig struct {
	MaxTokens   int     `toml:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	Temperature float64 `toml:"temperature" yaml:"temperature" json:"temperature"`
}

// OllamaConfig contains local Ollama server configuration.
type OllamaConfig struct {
	// URL of the Ollama server
	URL string `toml:"url" yaml:"url" json:"url"`
	// TimeoutSecs bounds non-streaming requests (blob upload excluded)
	TimeoutSecs int `toml:"timeout_secs" yaml:"timeout_secs" json:"timeout_secs"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// TickIntervalMs is the transcript refresh interval in milliseconds
	TickIntervalMs int `toml:"tick_interval_ms" yaml:"tick_interval_ms" json:"tick_interval_ms"`
	// RenderMarkdown re-renders completed replies as markdown
	RenderMarkdown bool `toml:"render_markdown" yaml:"render_markdown" json:"render_markdown"`
	// ModelDir is where the model file picker starts
	ModelDir string `toml:"model_dir" yaml:"model_dir" json:"model_dir"`
	// AltScreen runs the UI in the alternate screen buffer
	AltScreen bool `toml:"alt_screen" yaml:"alt_screen" json:"alt_screen"`
	// WatchModel watches the loaded model file for changes
	WatchModel bool `toml:"watch_model" yaml:"watch_model" json:"watch_model"`
}

// LogConfig controls the log file.
type LogConfig struct {
	// File is the log file path (empty = ~/.winchi/winchi.log)
	File string `toml:"file" yaml:"file" json:"file"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Inference: InferenceConfig{
			Backend:     BackendLlama,
			LibPath:     "",
			GPULayers:   -1,
			ContextSize: 4096,
			BatchSize:   512,
		},
		Generation: GenerationConfig{
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Ollama: OllamaConfig{
			URL:         "http://127.0.0.1:11434",
			TimeoutSecs: 30,
		},
		UI: UIConfig{
			TickIntervalMs: int(DefaultTickInterval / time.Millisecond),
			RenderMarkdown: false,
			ModelDir:       "",
			AltScreen:      true,
			WatchModel:     true,
		},
	}
}

// TickInterval returns the UI refresh interval as a duration.
func (c *Config) TickInterval() time.Duration {
	if c.UI.TickIntervalMs <= 0 {
		return DefaultTickInterval
	}
	return time.Duration(c.UI.TickIntervalMs) * time.Millisecond
}

// OllamaTimeout returns the Ollama request timeout as a duration.
func (c *Config) OllamaTimeout() time.Duration {
	if c.Ollama.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Ollama.TimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the WinChi configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".winchi"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// LogPath returns the log file path, creating its directory if needed.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.Log.File), 0755); err != nil {
			return "", err
		}
		return c.Log.File, nil
	}
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "winchi.log"), nil
}

// DefaultPath returns the path of the TOML config file in ConfigDir.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// candidatePaths returns config file candidates in precedence order.
func candidatePaths() []string {
	var paths []string
	if p := os.Getenv("WINCHI_CONFIG"); p != "" {
		paths = append(paths, p)
	}
	dir, err := ConfigDir()
	if err != nil {
		return paths
	}
	for _, name := range []string{"config.toml", "config.yaml", "config.yml", "config.json"} {
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the first config file found.
// .env and environment overrides are applied last, then the result is
// validated. When no file exists the defaults are returned.
func Load() (*Config, error) {
	loadDotEnv()

	for _, path := range candidatePaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFromPath(path)
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format is chosen by file extension; unknown extensions are
// decoded as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if err := decodeFile(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// decodeFile decodes path into cfg; fields missing from the file keep the
// values already in cfg.
func decodeFile(cfg *Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read JSON file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode JSON file: %w", err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read YAML file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode YAML file: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("failed to decode TOML file: %w", err)
		}
	}
	return nil
}

// loadDotEnv loads ./.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch strings.ToLower(c.Inference.Backend) {
	case BackendLlama, BackendOllama:
		c.Inference.Backend = strings.ToLower(c.Inference.Backend)
	default:
		errs = append(errs, ValidationError{
			Field:   "inference.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: llama, ollama", c.Inference.Backend),
		})
	}

	if c.Inference.ContextSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "inference.context_size",
			Message: "must not be negative",
		})
	}
	if c.Inference.BatchSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "inference.batch_size",
			Message: "must not be negative",
		})
	}

	if c.Generation.MaxTokens < MinMaxTokens || c.Generation.MaxTokens > MaxMaxTokens {
		errs = append(errs, ValidationError{
			Field:   "generation.max_tokens",
			Message: fmt.Sprintf("%d out of range [%d, %d]", c.Generation.MaxTokens, MinMaxTokens, MaxMaxTokens),
		})
	}
	if c.Generation.Temperature < MinTemperature || c.Generation.Temperature > MaxTemperature {
		errs = append(errs, ValidationError{
			Field:   "generation.temperature",
			Message: fmt.Sprintf("%.2f out of range [%.1f, %.1f]", c.Generation.Temperature, MinTemperature, MaxTemperature),
		})
	}

	if c.Inference.Backend == BackendOllama &&
		!strings.HasPrefix(c.Ollama.URL, "http://") && !strings.HasPrefix(c.Ollama.URL, "https://") {
		errs = append(errs, ValidationError{
			Field:   "ollama.url",
			Message: fmt.Sprintf("'%s' must start with http:// or https://", c.Ollama.URL),
		})
	}

	if c.UI.TickIntervalMs < 0 || c.UI.TickIntervalMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "ui.tick_interval_ms",
			Message: fmt.Sprintf("%d out of range [0, 1000]", c.UI.TickIntervalMs),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies WINCHI_* environment variables on top of the
// loaded configuration. Unparseable numeric values are ignored.
//
//   - WINCHI_BACKEND: overrides inference.backend
//   - WINCHI_MODEL: overrides inference.model_path
//   - WINCHI_LIB: overrides inference.lib_path
//   - WINCHI_GPU_LAYERS: overrides inference.gpu_layers
//   - WINCHI_MAX_TOKENS: overrides generation.max_tokens
//   - WINCHI_TEMPERATURE: overrides generation.temperature
//   - WINCHI_OLLAMA_URL: overrides ollama.url
//   - WINCHI_TICK_MS: overrides ui.tick_interval_ms
//   - WINCHI_MARKDOWN: overrides ui.render_markdown
//   - WINCHI_LOG_FILE: overrides log.file
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("WINCHI_BACKEND"); v != "" {
		c.Inference.Backend = v
	}
	if v := os.Getenv("WINCHI_MODEL"); v != "" {
		c.Inference.ModelPath = v
	}
	if v := os.Getenv("WINCHI_LIB"); v != "" {
		c.Inference.LibPath = v
	}
	if v := os.Getenv("WINCHI_GPU_LAYERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Inference.GPULayers = n
		}
	}
	if v := os.Getenv("WINCHI_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Generation.MaxTokens = n
		}
	}
	if v := os.Getenv("WINCHI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Generation.Temperature = f
		}
	}
	if v := os.Getenv("WINCHI_OLLAMA_URL"); v != "" {
		c.Ollama.URL = v
	}
	if v := os.Getenv("WINCHI_TICK_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.UI.TickIntervalMs = n
		}
	}
	if v := os.Getenv("WINCHI_MARKDOWN"); v != "" {
		c.UI.RenderMarkdown = v == "1" || strings.ToLower(v) == "true"
	}
	if v := os.Getenv("WINCHI_LOG_FILE"); v != "" {
		c.Log.File = v
	}
}

// =============================================================================
// SAVE
// =============================================================================

// SaveTOML writes cfg to path as TOML, creating the parent directory.
// The file is created with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# WinChi configuration file")
	fmt.Fprintln(file, "# Environment variables (WINCHI_*) override these values.")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
