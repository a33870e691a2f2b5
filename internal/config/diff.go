package config

import "reflect"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// CorrectionChanged is true when worker count, temperature, token cap, or
	// segment budget changed. Applies to runs started after the reload.
	CorrectionChanged bool
	NewCorrection     CorrectionConfig

	// LLMChanged is true when the provider selection or its credentials
	// changed. The provider must be rebuilt before the next run.
	LLMChanged bool
	NewLLM     ProviderEntry
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Correction != new.Correction {
		d.CorrectionChanged = true
		d.NewCorrection = new.Correction
	}

	if !providerEntryEqual(old.LLM, new.LLM) {
		d.LLMChanged = true
		d.NewLLM = new.LLM
	}

	return d
}

// providerEntryEqual compares two provider entries including their free-form
// options map.
func providerEntryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	return reflect.DeepEqual(a.Options, b.Options)
}
