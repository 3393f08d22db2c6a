package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
openai:
  api_key: test-key
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.App.Environment != "development" {
		t.Errorf("unexpected environment: %s", cfg.App.Environment)
	}
	if cfg.Exchange.Retry.MaxAttempts != 5 {
		t.Errorf("unexpected retry attempts: %d", cfg.Exchange.Retry.MaxAttempts)
	}
	if cfg.Pipeline.CollaboratorTimeout != 45*time.Second {
		t.Errorf("unexpected collaborator timeout: %s", cfg.Pipeline.CollaboratorTimeout)
	}
	if cfg.Pipeline.VoterTimeout != 20*time.Second {
		t.Errorf("unexpected voter timeout: %s", cfg.Pipeline.VoterTimeout)
	}
	if cfg.Backtest.InitialCapital != 100000 {
		t.Errorf("unexpected initial capital: %f", cfg.Backtest.InitialCapital)
	}
	if !cfg.Execution.Simulation {
		t.Error("simulation must default to true")
	}
}

func TestLoad_ParsesDurationsAndLists(t *testing.T) {
	path := writeConfig(t, `
app:
  tickers:
    - BTC/USDT
    - ETH/USDT
openai:
  api_key: test-key
pipeline:
  collaborator_timeout: 90s
  voter_timeout: 30s
scheduler:
  loop_interval: 2m
  decision_interval: 30m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(cfg.App.Tickers) != 2 {
		t.Fatalf("expected 2 tickers, got %d", len(cfg.App.Tickers))
	}
	if cfg.Pipeline.CollaboratorTimeout != 90*time.Second {
		t.Errorf("unexpected collaborator timeout: %s", cfg.Pipeline.CollaboratorTimeout)
	}
	if cfg.Scheduler.DecisionInterval != 30*time.Minute {
		t.Errorf("unexpected decision interval: %s", cfg.Scheduler.DecisionInterval)
	}
}

func TestLoad_RejectsMissingAPIKey(t *testing.T) {
	path := writeConfig(t, `
app:
  environment: production
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error without openai api key")
	}
}

func TestLoad_RejectsVoterTimeoutAboveCollaborator(t *testing.T) {
	path := writeConfig(t, `
openai:
  api_key: test-key
pipeline:
  collaborator_timeout: 10s
  voter_timeout: 30s
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error when voter timeout exceeds collaborator timeout")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
