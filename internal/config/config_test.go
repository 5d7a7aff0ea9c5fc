package config

import (
	"os"
	"testing"
)

func TestConfigLoad_Defaults(t *testing.T) {
	_ = os.Unsetenv("MEMORYCARE_HTTP_PORT")
	_ = os.Unsetenv("MEMORYCARE_DB_DRIVER")
	_ = os.Unsetenv("MEMORYCARE_MEMORY_SERVICE_URL")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.HTTPPort != 8000 || cfg.DBDriver != "sqlite" || cfg.MemoryServiceURL != "http://localhost:8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	_ = os.Setenv("MEMORYCARE_MEMORY_SERVICE_URL", "http://memmachine:9000")
	defer func() { _ = os.Unsetenv("MEMORYCARE_MEMORY_SERVICE_URL") }()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.MemoryServiceURL != "http://memmachine:9000" {
		t.Fatalf("env override failed, got %s", cfg.MemoryServiceURL)
	}
}

func TestConfigLoad_RejectsUnknownDriver(t *testing.T) {
	_ = os.Setenv("MEMORYCARE_DB_DRIVER", "mysql")
	defer func() { _ = os.Unsetenv("MEMORYCARE_DB_DRIVER") }()

	if _, err := New(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestConfigLoad_PostgresRequiresDSN(t *testing.T) {
	_ = os.Setenv("MEMORYCARE_DB_DRIVER", "postgres")
	_ = os.Unsetenv("MEMORYCARE_POSTGRES_DSN")
	defer func() { _ = os.Unsetenv("MEMORYCARE_DB_DRIVER") }()

	if _, err := New(); err == nil {
		t.Fatalf("expected error when postgres DSN missing")
	}
}

func TestModels_FallbackChain(t *testing.T) {
	cfg := &Config{OpenAIModel: "gpt-4o-mini", FallbackModel: "qwen-max"}
	got := cfg.Models()
	if len(got) != 2 || got[0] != "gpt-4o-mini" || got[1] != "qwen-max" {
		t.Fatalf("unexpected model chain: %v", got)
	}

	cfg = &Config{FallbackModel: "qwen-max"}
	got = cfg.Models()
	if len(got) != 1 || got[0] != "qwen-max" {
		t.Fatalf("unexpected model chain without preferred: %v", got)
	}
}
