package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GatewayURL != "http://localhost:3001" {
		t.Errorf("gateway url = %q", cfg.GatewayURL)
	}
	if cfg.Port != 3001 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.Retention != 20 {
		t.Errorf("retention = %d", cfg.Retention)
	}
	if cfg.Addr() != "0.0.0.0:3001" {
		t.Errorf("addr = %q", cfg.Addr())
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AUDIENZE_GATEWAY_URL", "http://10.0.0.5:8080")
	t.Setenv("AUDIENZE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GatewayURL != "http://10.0.0.5:8080" {
		t.Errorf("gateway url = %q", cfg.GatewayURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadRejectsBadLevel(t *testing.T) {
	t.Setenv("AUDIENZE_LOG_LEVEL", "loud")
	if _, err := Load(); err == nil {
		t.Fatal("want validation error for bad log level")
	}
}
