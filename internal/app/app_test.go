package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redink-dev/redink/internal/app"
	"github.com/redink-dev/redink/internal/config"
	"github.com/redink-dev/redink/internal/task"
	"github.com/redink-dev/redink/pkg/provider/llm"
	llmmock "github.com/redink-dev/redink/pkg/provider/llm/mock"
)

// testConfig returns a minimal config bound to an ephemeral port.
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: "127.0.0.1:0",
			LogLevel:   config.LogInfo,
		},
		LLM: config.ProviderEntry{
			Name:  "deepseek",
			Model: "deepseek-chat",
		},
		Correction: config.CorrectionConfig{
			Workers:     2,
			Temperature: 0.2,
		},
	}
}

func testProvider() llm.Provider {
	return &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "[]"},
	}
}

// The observability providers are process-global, so New runs once per test
// binary and the whole lifecycle is exercised in a single test.
func TestApp_Lifecycle(t *testing.T) {
	store := task.NewMemStore()

	application, err := app.New(
		context.Background(),
		testConfig(),
		testProvider(),
		app.WithStore(store),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- application.Run(ctx)
	}()

	// Give the server a moment to come up, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Shutdown() returned error: %v", err)
	}

	// Shutdown is idempotent.
	if err := application.Shutdown(shutdownCtx); err != nil {
		t.Errorf("second Shutdown() returned error: %v", err)
	}
}
