package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCAddr() != "0.0.0.0:50051" {
		t.Fatalf("GRPCAddr = %q, want %q", cfg.GRPCAddr(), "0.0.0.0:50051")
	}
	if cfg.StoreDriver != StoreDriverPostgres {
		t.Fatalf("StoreDriver = %q, want %q", cfg.StoreDriver, StoreDriverPostgres)
	}
	if cfg.MaxRangeDays != 62 {
		t.Fatalf("MaxRangeDays = %d, want 62", cfg.MaxRangeDays)
	}
	if !cfg.CacheEnabled || cfg.CacheTTL != 30*time.Second {
		t.Fatalf("cache = %v/%v", cfg.CacheEnabled, cfg.CacheTTL)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.RabbitMQURL != "" {
		t.Fatalf("RabbitMQURL = %q, want empty", cfg.RabbitMQURL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CAREBOOK_STORE_DRIVER", "memory")
	t.Setenv("CAREBOOK_GRPC_ADDR", "127.0.0.1:6000")
	t.Setenv("CAREBOOK_CACHE_TTL", "2m")
	t.Setenv("CAREBOOK_HTTP_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CAREBOOK_SCHEDULING_DEFAULT_TIMEZONE", "Europe/Berlin")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Fatalf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.GRPCHost != "127.0.0.1" || cfg.GRPCPort != 6000 {
		t.Fatalf("grpc = %s:%d", cfg.GRPCHost, cfg.GRPCPort)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Fatalf("CacheTTL = %v", cfg.CacheTTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.DefaultTimezone != "Europe/Berlin" {
		t.Fatalf("DefaultTimezone = %q", cfg.DefaultTimezone)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad duration", env: map[string]string{"CAREBOOK_SHUTDOWN_TIMEOUT": "soon"}},
		{name: "unknown driver", env: map[string]string{"CAREBOOK_STORE_DRIVER": "sqlite"}},
		{name: "unknown timezone", env: map[string]string{"CAREBOOK_SCHEDULING_DEFAULT_TIMEZONE": "Nowhere/Special"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
