package config

import (
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSecureCookies(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "production", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "rezom", SSLMode: "require"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret", JWTIssuer: "rezom", JWTAudience: "rezom-web"},
		Mail:  MailConfig{ResendAPIKey: "re_x", AppURL: "https://rezom.app"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without COOKIE_SECURE")
	}
	c.Cookie.Secure = true
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "rezom", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Cookie.RefreshName != "rezom_rt" || c.Cookie.CSRFName != "X-CSRF-Token" {
		t.Fatalf("unexpected cookie defaults: %+v", c.Cookie)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access TTL default, got %v", c.Auth.AccessTokenTTL)
	}
	if c.Auth.RefreshSessionTTL <= c.Auth.AccessTokenTTL {
		t.Fatalf("refresh TTL default must exceed access TTL")
	}
}

func TestValidate_RefreshTTLMustExceedAccessTTL(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "rezom"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth: AuthConfig{
			JWTSecret:         "secret",
			AccessTokenTTL:    time.Hour,
			RefreshSessionTTL: time.Minute,
		},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for refresh TTL <= access TTL")
	}
}
