package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadInterpolatesEnvAndValidates(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")

	cfgYAML := `
version: 1
account: ${PODPING_HIVE_ACCOUNT}
hive:
  nodes:
    - https://node-one.test
    - https://node-two.test
  backoff: 50ms
watch:
  poll_interval: 1s
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PODPING_HIVE_ACCOUNT", "podping")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("expected load to succeed: %v", err)
	}

	if cfg.Account != "podping" {
		t.Fatalf("account not interpolated, got %q", cfg.Account)
	}
	if got := cfg.Hive.BackoffValue(); got != 50*time.Millisecond {
		t.Fatalf("backoff = %v, want 50ms", got)
	}
	if got := cfg.Watch.PollIntervalValue(); got != time.Second {
		t.Fatalf("poll_interval = %v, want 1s", got)
	}
	if cfg.Post.Medium != "podcast" || cfg.Post.Reason != "update" {
		t.Fatalf("post defaults not applied: %+v", cfg.Post)
	}
}

func TestLoadFailsOnMissingEnv(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")

	cfgYAML := `
version: 1
account: ${PODPING_MISSING_ACCOUNT}
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected missing env to fail")
	}
}

func TestDefaultNodesApplied(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Hive.Nodes) != len(DefaultNodes) {
		t.Fatalf("expected default node list, got %d nodes", len(cfg.Hive.Nodes))
	}
}

func TestValidateRejectsBadNode(t *testing.T) {
	cfg := &Config{
		Version: 1,
		Hive:    HiveConfig{Nodes: []string{"ftp://not-http"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected bad node scheme to fail validation")
	}
}

func TestValidateRejectsBadDuration(t *testing.T) {
	cfg := &Config{
		Version: 1,
		Hive:    HiveConfig{Nodes: []string{"https://node.test"}, Backoff: "soon"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected bad backoff to fail validation")
	}
}
