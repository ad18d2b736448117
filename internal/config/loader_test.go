package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 3001 {
		t.Fatalf("port = %d, want 3001", cfg.App.Port)
	}
	if cfg.Client.URL != "ws://localhost:3001" {
		t.Fatalf("client url = %q", cfg.Client.URL)
	}
	if cfg.PingInterval != 25*time.Second || cfg.WriteDeadline != 10*time.Second {
		t.Fatalf("derived durations = %v / %v", cfg.PingInterval, cfg.WriteDeadline)
	}
	if cfg.Client.MaxAttempts != 5 || cfg.BaseDelay != time.Second {
		t.Fatalf("client retry defaults = %d / %v", cfg.Client.MaxAttempts, cfg.BaseDelay)
	}
	if !cfg.Development() {
		t.Fatal("empty env should count as development")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
app:
  env: production
  port: 4005
ws:
  ping_interval_seconds: 5
  send_buffer: 32
client:
  base_delay_ms: 250
  max_attempts: 8
kafka:
  brokers:
    - localhost:9092
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 4005 {
		t.Fatalf("port = %d", cfg.App.Port)
	}
	if cfg.PingInterval != 5*time.Second {
		t.Fatalf("ping interval = %v", cfg.PingInterval)
	}
	if cfg.WS.SendBuffer != 32 {
		t.Fatalf("send buffer = %d", cfg.WS.SendBuffer)
	}
	if cfg.BaseDelay != 250*time.Millisecond || cfg.Client.MaxAttempts != 8 {
		t.Fatalf("client retry = %v / %d", cfg.BaseDelay, cfg.Client.MaxAttempts)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.TopicMessageSent != "chat.message.sent" {
		t.Fatalf("topic default = %q", cfg.Kafka.TopicMessageSent)
	}
	if cfg.Development() {
		t.Fatal("production env reported as development")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
