package config

import (
	"context"
	"errors"
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

const sampleYAML = `
telegram:
  token: "123:abc"
  owner_user_ids: [1001, 1002]
  group_log: "-100200300"
  poll_timeout: "10s"
logging:
  level: debug
  console: true
  file:
    enabled: true
    path: /tmp/finbot.log
  telegram:
    enabled: true
    min_level: warn
    rate_per_sec: 1
storage:
  path: /var/lib/finbot/finbot.db
  busy_timeout: "5s"
scheduler:
  enabled: true
  interval: "5m"
  timezone: "Asia/Dhaka"
  alert_time: "09:00"
  window: "1h"
`

func TestParseFullConfig(t *testing.T) {
	m := NewManager(writeConfig(t, sampleYAML))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.OwnerUserIDs) != 2 || cfg.Telegram.OwnerUserIDs[0] != 1001 {
		t.Fatalf("owner ids = %v", cfg.Telegram.OwnerUserIDs)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.File.Enabled {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Logging.Telegram.MinLevel != "warn" || cfg.Logging.Telegram.RatePerSec != 1 {
		t.Fatalf("telegram logging = %+v", cfg.Logging.Telegram)
	}
	if cfg.Storage.Path != "/var/lib/finbot/finbot.db" {
		t.Fatalf("storage path = %q", cfg.Storage.Path)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.Timezone != "Asia/Dhaka" || cfg.Scheduler.AlertTime != "09:00" {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	m := NewManager(writeConfig(t, `
telegram:
  token: "123:abc"
  shiny_new_knob: true
`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseTokenFromEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "999:env-token")
	m := NewManager(writeConfig(t, `
telegram:
  owner_user_ids: [1]
`))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "999:env-token" {
		t.Fatalf("token = %q, want env fallback", cfg.Telegram.Token)
	}
}

func TestParseFileTokenWinsOverEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "999:env-token")
	m := NewManager(writeConfig(t, `
telegram:
  token: "123:file-token"
`))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "123:file-token" {
		t.Fatalf("token = %q, want file value", cfg.Telegram.Token)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "5m", want: 5 * time.Minute},
		{raw: " 10s ", want: 10 * time.Second},
		{raw: "-1s", wantErr: true},
		{raw: "five minutes", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDurationField("test.field", tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseDurationField(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDurationField(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDurationField(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	got, err := ParseDurationOrDefault("f", "", 5*time.Minute)
	if err != nil || got != 5*time.Minute {
		t.Fatalf("empty = (%v, %v), want default", got, err)
	}
	got, err = ParseDurationOrDefault("f", "30s", 5*time.Minute)
	if err != nil || got != 30*time.Second {
		t.Fatalf("explicit = (%v, %v)", got, err)
	}
}

func TestLoadCommitsAndGetReturnsCommitted(t *testing.T) {
	m := NewManager(writeConfig(t, sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get returned a different pointer than Load committed")
	}
}

func TestReloadPublishesValidConfig(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	updated := `
telegram:
  token: "456:def"
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	m.reload(context.Background())

	select {
	case got := <-ch:
		if got.Telegram.Token != "456:def" {
			t.Fatalf("published token = %q", got.Telegram.Token)
		}
	default:
		t.Fatal("no config published after reload")
	}
	if m.Get().Telegram.Token != "456:def" {
		t.Fatal("reload did not commit the new config")
	}
}

func TestReloadRejectedByValidator(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	m := NewManager(path)
	before, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	m.SetValidator(func(context.Context, *Config) error {
		return errors.New("bad scheduler interval")
	})

	if err := os.WriteFile(path, []byte(`
telegram:
  token: "456:def"
`), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	m.reload(context.Background())

	if m.Get() != before {
		t.Fatal("rejected config was committed")
	}
}

func TestReloadSuppressesUnchangedContent(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	m.reload(context.Background()) // same bytes on disk

	select {
	case <-ch:
		t.Fatal("unchanged config was republished")
	default:
	}
}
