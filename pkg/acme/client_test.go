package acme

import (
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		DirectoryURL: "https://acme.example.com/directory",
		Email:        "ops@example.com",
		Domains:      []string{"stream.example.com"},
		StoragePath:  t.TempDir(),
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing directory", func(c *Config) { c.DirectoryURL = "" }, "directory_url"},
		{"missing email", func(c *Config) { c.Email = "" }, "email"},
		{"no domains", func(c *Config) { c.Domains = nil }, "domain"},
		{"bad challenge", func(c *Config) { c.ChallengeType = "dns-01" }, "challenge_type"},
		{"missing storage", func(c *Config) { c.StoragePath = "" }, "storage_path"},
		{"http-01 allowed", func(c *Config) { c.ChallengeType = "http-01" }, ""},
		{"tls-alpn-01 allowed", func(c *Config) { c.ChallengeType = "tls-alpn-01" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateDefaultsRenewBefore(t *testing.T) {
	cfg := validConfig(t)
	cfg.RenewBefore = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RenewBefore != defaultRenewBefore {
		t.Errorf("RenewBefore = %v, want %v", cfg.RenewBefore, defaultRenewBefore)
	}
}

func TestConfigValidateKeepsExplicitRenewBefore(t *testing.T) {
	cfg := validConfig(t)
	cfg.RenewBefore = 48 * time.Hour

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RenewBefore != 48*time.Hour {
		t.Errorf("RenewBefore = %v, want 48h", cfg.RenewBefore)
	}
}

func TestBuildHTTPClientMissingBundle(t *testing.T) {
	_, err := buildHTTPClient("/nonexistent/ca.pem")
	if err == nil {
		t.Fatal("expected error for missing CA bundle")
	}
}

func TestBuildHTTPClientInvalidPEM(t *testing.T) {
	path := t.TempDir() + "/ca.pem"
	writeFile(t, path, "not a certificate")

	_, err := buildHTTPClient(path)
	if err == nil {
		t.Fatal("expected error for invalid PEM")
	}
}
