package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", c.Server.Port)
	}
	if c.Engine.Timeout != 10*time.Minute {
		t.Fatalf("expected engine timeout 10m, got %v", c.Engine.Timeout)
	}
	if c.Data.Yahoo.Suffix != ".NS" {
		t.Fatalf("expected .NS suffix, got %q", c.Data.Yahoo.Suffix)
	}
	if c.Forecast.LookbackPeriod != "2y" {
		t.Fatalf("expected lookback 2y, got %q", c.Forecast.LookbackPeriod)
	}
	if c.Kafka.Producer.Linger != 50*time.Millisecond {
		t.Fatalf("expected linger 50ms, got %v", c.Kafka.Producer.Linger)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: prod\nserver:\n  port: 9090\nengine:\n  url: http://engine:8000\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Server.Port != 9090 || c.Engine.URL != "http://engine:8000" {
		t.Fatalf("overrides not applied: %+v %+v", c.Server, c.Engine)
	}
	if c.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("sibling default lost: %v", c.Server.ReadTimeout)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"redis cache without redis", "data:\n  cache: redis\n"},
		{"unknown cache", "data:\n  cache: disk\n"},
		{"queue without redis", "queue:\n  enabled: true\n"},
		{"kafka without brokers", "kafka:\n  enabled: true\n"},
		{"scheduler without watchlist", "scheduler:\n  enabled: true\n"},
		{"bad port", "server:\n  port: 70000\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := map[string]string{
		"PRICECAST_ENGINE_URL":     "http://ml:9000",
		"PRICECAST_LOCAL_DATA_DIR": "/data",
		"SYMBOLS":                  "TCS, INFY,,^NSEI",
		"KAFKA_BROKERS":            "k1:9092,k2:9092",
	}
	c.applyEnv(func(k string) string { return env[k] })

	if c.Engine.URL != "http://ml:9000" || c.Data.LocalDir != "/data" {
		t.Fatalf("env not applied: %+v %+v", c.Engine, c.Data)
	}
	if len(c.Data.Watchlist) != 3 || c.Data.Watchlist[1] != "INFY" {
		t.Fatalf("unexpected watchlist %v", c.Data.Watchlist)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka env not applied: %+v", c.Kafka)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("environment: test\nscheduler:\n  enabled: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for scheduler without watchlist")
	}
	t.Setenv("SYMBOLS", "TCS")
	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Data.Watchlist) != 1 {
		t.Fatalf("expected watchlist from env, got %v", c.Data.Watchlist)
	}
}
