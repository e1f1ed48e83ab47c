package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.ClosingTime == "" {
		t.Fatalf("expected default closing time")
	}
	if cfg.ReconcileWorkers <= 0 {
		t.Fatalf("expected default reconcile workers")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("FACILITY_TIMEZONE", "Asia/Jakarta")
	t.Setenv("CLOSING_TIME", "21:30")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.ClosingTime != "21:30" {
		t.Fatalf("expected override closing time")
	}
	if cfg.Location().String() != "Asia/Jakarta" {
		t.Fatalf("expected facility timezone to resolve")
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Config{FacilityTimezone: "Not/AZone"}
	if cfg.Location().String() != "UTC" {
		t.Fatalf("expected UTC fallback")
	}
}
