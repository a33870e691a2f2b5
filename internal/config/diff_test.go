package config_test

import (
	"testing"

	"github.com/redink-dev/redink/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   config.LogInfo,
		},
		LLM: config.ProviderEntry{
			Name:   "deepseek",
			APIKey: "sk-test",
			Model:  "deepseek-chat",
		},
		Correction: config.CorrectionConfig{
			Workers:     4,
			Temperature: 0.2,
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()

	d := config.Diff(old, new)
	if d.LogLevelChanged || d.CorrectionChanged || d.LLMChanged {
		t.Errorf("expected empty diff, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Fatal("expected LogLevelChanged")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel: got %q, want debug", d.NewLogLevel)
	}
	if d.CorrectionChanged || d.LLMChanged {
		t.Errorf("unrelated changes flagged: %+v", d)
	}
}

func TestDiff_CorrectionChanged(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Correction.Workers = 12

	d := config.Diff(old, new)
	if !d.CorrectionChanged {
		t.Fatal("expected CorrectionChanged")
	}
	if d.NewCorrection.Workers != 12 {
		t.Errorf("NewCorrection.Workers: got %d, want 12", d.NewCorrection.Workers)
	}
}

func TestDiff_LLMChanged(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.LLM.Model = "deepseek-reasoner"

	d := config.Diff(old, new)
	if !d.LLMChanged {
		t.Fatal("expected LLMChanged")
	}
	if d.NewLLM.Model != "deepseek-reasoner" {
		t.Errorf("NewLLM.Model: got %q", d.NewLLM.Model)
	}
}

func TestDiff_LLMOptionsChanged(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	old.LLM.Options = map[string]any{"timeout": "30s"}
	new.LLM.Options = map[string]any{"timeout": "60s"}

	d := config.Diff(old, new)
	if !d.LLMChanged {
		t.Fatal("expected LLMChanged for options change")
	}
}

func TestDiff_EqualOptionsMaps(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	old.LLM.Options = map[string]any{"timeout": "30s"}
	new.LLM.Options = map[string]any{"timeout": "30s"}

	d := config.Diff(old, new)
	if d.LLMChanged {
		t.Error("identical options maps should not flag LLMChanged")
	}
}
