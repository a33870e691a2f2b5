package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known LLM provider names.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "deepseek", "anthropic", "gemini", "ollama", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// LLM provider
	if cfg.LLM.Name == "" {
		errs = append(errs, errors.New("llm.name is required"))
	} else if !slices.Contains(ValidProviderNames, cfg.LLM.Name) {
		slog.Warn("unknown provider name — may be a typo or third-party provider",
			"name", cfg.LLM.Name,
			"known", ValidProviderNames,
		)
	}
	if cfg.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	for i, fb := range cfg.LLMFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("llm_fallbacks[%d].name is required", i))
		}
		if fb.Model == "" {
			errs = append(errs, fmt.Errorf("llm_fallbacks[%d].model is required", i))
		}
	}

	// Correction tuning
	if cfg.Correction.Workers < 0 {
		errs = append(errs, fmt.Errorf("correction.workers %d must not be negative", cfg.Correction.Workers))
	}
	if cfg.Correction.Temperature < 0 || cfg.Correction.Temperature > 2 {
		errs = append(errs, fmt.Errorf("correction.temperature %.2f is out of range [0, 2]", cfg.Correction.Temperature))
	}
	if cfg.Correction.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("correction.max_tokens %d must not be negative", cfg.Correction.MaxTokens))
	}
	if cfg.Correction.MaxSegmentChars < 0 {
		errs = append(errs, fmt.Errorf("correction.max_segment_chars %d must not be negative", cfg.Correction.MaxSegmentChars))
	}

	// Upload handling
	if cfg.Upload.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("upload.max_bytes %d must not be negative", cfg.Upload.MaxBytes))
	}
	if cfg.Upload.JanitorInterval < 0 {
		errs = append(errs, fmt.Errorf("upload.janitor_interval %s must not be negative", cfg.Upload.JanitorInterval))
	}
	if cfg.Upload.Retention < 0 {
		errs = append(errs, fmt.Errorf("upload.retention %s must not be negative", cfg.Upload.Retention))
	}

	// Storage availability
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; task history will not survive a restart")
	}

	return errors.Join(errs...)
}
