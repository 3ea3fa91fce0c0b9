package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8080 || cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("server defaults = %+v", cfg.Server)
	}
	if cfg.Database.Path == "" {
		t.Fatal("database path default missing")
	}
	if cfg.Application.Version == "" || cfg.Application.Timezone != "UTC" {
		t.Fatalf("application defaults = %+v", cfg.Application)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_HOST", "127.0.0.1")
	t.Setenv("GATEWAY_PORT", "9090")
	t.Setenv("GATEWAY_DB_PATH", "/tmp/test.db")

	cfg := Load()
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Fatalf("database = %+v", cfg.Database)
	}
}

func TestBadPortEnvIgnored(t *testing.T) {
	t.Setenv("GATEWAY_PORT", "not-a-port")

	cfg := Load()
	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d, want default", cfg.Server.Port)
	}
}
