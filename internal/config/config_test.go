package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "DATABASE_URL", "REDIS_URL", "JWT_SECRET_KEY", "TOKEN_TTL", "BCRYPT_COST",
		"OPA_APP_CODE", "OPA_SECRET_KEY", "FIUU_PRECREATE_URL", gatewayTimeoutEnvVar, "FIUU_STORE_ID",
		"CONFIG_FILE", "LOGIN_RATE_PER_MIN", shutdownSecondsEnvVar, shutdownDurationEnvVar,
		idemTTLSecondsEnvVar, idemTTLDurEnvVar,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDevDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.UsesDevTokenSecret() {
		t.Fatalf("expected dev token secret fallback in development")
	}
	if cfg.TokenTTL != defaultTokenTTL {
		t.Fatalf("expected token ttl %s, got %s", defaultTokenTTL, cfg.TokenTTL)
	}
	if cfg.Gateway.Timeout != 10*time.Second {
		t.Fatalf("expected gateway timeout 10s, got %s", cfg.Gateway.Timeout)
	}
	if cfg.Gateway.SecretKey != "" || cfg.Gateway.ApplicationCode != "" {
		t.Fatalf("merchant credentials must not have literal defaults")
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadProductionRequiresTokenSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/fiuu")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without JWT_SECRET_KEY in production")
	}

	t.Setenv("JWT_SECRET_KEY", "prod-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UsesDevTokenSecret() {
		t.Fatalf("production must not use the dev secret")
	}
}

func TestLoadKeepsSecretsDistinct(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET_KEY", "token-secret")
	t.Setenv("OPA_SECRET_KEY", "payment-secret")
	t.Setenv("OPA_APP_CODE", "APP1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TokenSecret != "token-secret" || cfg.Gateway.SecretKey != "payment-secret" {
		t.Fatalf("secrets conflated: token=%q payment=%q", cfg.TokenSecret, cfg.Gateway.SecretKey)
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid TOKEN_TTL error")
	}
}

func TestLoadRejectsBadGatewayTimeout(t *testing.T) {
	for _, v := range []string{"ten-seconds", "0s", "-5s"} {
		clearEnv(t)
		t.Setenv(gatewayTimeoutEnvVar, v)
		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for %s=%q", gatewayTimeoutEnvVar, v)
		}
		if !strings.Contains(err.Error(), "invalid "+gatewayTimeoutEnvVar) {
			t.Fatalf("unexpected error for %q: %v", v, err)
		}
	}

	clearEnv(t)
	t.Setenv(gatewayTimeoutEnvVar, "4s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.Timeout != 4*time.Second {
		t.Fatalf("expected 4s gateway timeout, got %s", cfg.Gateway.Timeout)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "fiuupay.yaml")
	body := []byte("app_name: QRDesk\ngateway:\n  store_id: shop42\n  terminal_id: \"7\"\n  timeout: 3s\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("FIUU_TERMINAL_ID", "9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppName != "QRDesk" {
		t.Fatalf("expected app name from file, got %s", cfg.AppName)
	}
	if cfg.Gateway.StoreID != "shop42" {
		t.Fatalf("expected store id from file, got %s", cfg.Gateway.StoreID)
	}
	if cfg.Gateway.TerminalID != "9" {
		t.Fatalf("env must override file, got terminal %s", cfg.Gateway.TerminalID)
	}
	if cfg.Gateway.Timeout != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", cfg.Gateway.Timeout)
	}
	if cfg.Gateway.Currency != "MYR" {
		t.Fatalf("expected default currency to survive overlay, got %s", cfg.Gateway.Currency)
	}
}
