package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Listen)
	}
	if cfg.Cache.BaseTTL != time.Hour {
		t.Errorf("expected 1h base TTL, got %v", cfg.Cache.BaseTTL)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", cfg.Retry.MaxAttempts)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "secret-123")

	content := `
listen: ":9090"
redis:
  addr: "redis.internal:6379"
  password: ${TEST_REDIS_PASSWORD}
  db: 2
cache:
  base_ttl: 30m
  front_cache_size: 64
pool:
  workers: 4
  task_timeout: 90s
log:
  level: debug
  pretty: true
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.Listen)
	}
	if cfg.Redis.Password != "secret-123" {
		t.Errorf("env var not expanded: got %s", cfg.Redis.Password)
	}
	if cfg.Cache.BaseTTL != 30*time.Minute {
		t.Errorf("expected 30m base TTL, got %v", cfg.Cache.BaseTTL)
	}
	if cfg.Cache.FrontCacheTTL != 5*time.Minute {
		t.Errorf("unset field lost its default: %v", cfg.Cache.FrontCacheTTL)
	}
	if cfg.Pool.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Pool.Workers)
	}
	if cfg.Pool.TaskTimeout != 90*time.Second {
		t.Errorf("expected 90s task timeout, got %v", cfg.Pool.TaskTimeout)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Pretty {
		t.Errorf("log config = %+v", cfg.Log)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}
