package config

import (
	"strings"
	"testing"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_PASSWORD", "x")
	t.Setenv("DB_NAME", "syncflow")
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_ACCESS_TTL", "")
	t.Setenv("JWT_REFRESH_TTL", "")
	t.Setenv("PUSH_TIMEOUT", "")
}

func validBase() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "syncflow", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLModeAndPush(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE and PUSH_SERVER_KEY")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_PushKeyWithoutEndpointRejected(t *testing.T) {
	c := validBase()
	c.Push.ServerKey = "k"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for PUSH_SERVER_KEY without PUSH_ENDPOINT")
	}
}

func TestLoad_MalformedDurationIsAnError(t *testing.T) {
	setValidEnv(t)
	t.Setenv("JWT_ACCESS_TTL", "15minutes")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for malformed JWT_ACCESS_TTL")
	}
	if !strings.Contains(err.Error(), "JWT_ACCESS_TTL") {
		t.Fatalf("error must name the offending variable, got %v", err)
	}
}

func TestLoad_UnsetDurationsGetDefaults(t *testing.T) {
	setValidEnv(t)

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 || c.Push.Timeout <= 0 {
		t.Fatalf("unset durations must be defaulted, got %+v", c)
	}
}

func TestValidate_PushTimeoutDefaulted(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Push.Timeout <= 0 {
		t.Fatalf("expected push timeout default, got %v", c.Push.Timeout)
	}
}
