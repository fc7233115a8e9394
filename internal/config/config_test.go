package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks the variables ApplyEnv reads so the host environment
// cannot leak into Load tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "SANTA_STORE", "DATABASE_URL", "SANTA_REMOTE_URL", "SANTA_BIND",
		"PORT", "SANTA_ADMIN_PASSWORD", "SANTA_CHANNEL_URL", "GEOIP_DB_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.PageSize != def.PageSize {
		t.Fatalf("PageSize = %d, want %d", cfg.PageSize, def.PageSize)
	}
	if cfg.Store != StoreSQLite {
		t.Fatalf("Store = %q, want %q", cfg.Store, StoreSQLite)
	}
	if cfg.AdminPassword != "" {
		t.Fatalf("AdminPassword = %q, want empty", cfg.AdminPassword)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	data := `{"page_size": 12, "feed_poll_ms": 500, "optional_category": true, "admin_password": "sleigh"}`
	if err := os.WriteFile(configPath, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PageSize != 12 {
		t.Errorf("PageSize = %d, want 12", cfg.PageSize)
	}
	if cfg.FeedPoll() != 500*time.Millisecond {
		t.Errorf("FeedPoll() = %v, want 500ms", cfg.FeedPoll())
	}
	if !cfg.OptionalCategory {
		t.Error("OptionalCategory = false, want true")
	}
	if cfg.AdminPassword != "sleigh" {
		t.Errorf("AdminPassword = %q, want %q", cfg.AdminPassword, "sleigh")
	}
	// Untouched values keep their defaults.
	if cfg.BrowserPoll() != 5*time.Second {
		t.Errorf("BrowserPoll() = %v, want 5s", cfg.BrowserPoll())
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"port": 9000, "admin_password": "file"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("SANTA_ADMIN_PASSWORD", "env")
	t.Setenv("PORT", "9100")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AdminPassword != "env" {
		t.Errorf("AdminPassword = %q, want %q", cfg.AdminPassword, "env")
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SANTA_STORE":      "remote",
		"SANTA_REMOTE_URL": "http://santa.local/api",
		"PORT":             "not-a-number",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := ApplyEnv(DefaultConfig(), lookup)

	if cfg.Store != StoreRemote {
		t.Errorf("Store = %q, want %q", cfg.Store, StoreRemote)
	}
	if cfg.RemoteURL != "http://santa.local/api" {
		t.Errorf("RemoteURL = %q", cfg.RemoteURL)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want default 8080 for unparsable env", cfg.Port)
	}
}

func TestMerge(t *testing.T) {
	base := &Config{
		Store:         StoreSQLite,
		PageSize:      9,
		DisabledTools: []string{"wish_delete"},
	}
	overlay := &Config{
		PageSize:         6,
		OptionalCategory: true,
		DisabledTools:    []string{" wish_delete ", "wish_claim", ""},
	}

	result := Merge(base, overlay)

	if result.Store != StoreSQLite {
		t.Errorf("Store = %q, want base value", result.Store)
	}
	if result.PageSize != 6 {
		t.Errorf("PageSize = %d, want 6", result.PageSize)
	}
	if !result.OptionalCategory {
		t.Error("OptionalCategory should be true when overlay sets it")
	}
	if len(result.DisabledTools) != 2 {
		t.Fatalf("DisabledTools = %v, want 2 deduplicated entries", result.DisabledTools)
	}
	if result.DisabledTools[0] != "wish_delete" || result.DisabledTools[1] != "wish_claim" {
		t.Errorf("DisabledTools = %v", result.DisabledTools)
	}
}

func TestMerge_EmptySlicesStayNil(t *testing.T) {
	result := Merge(&Config{}, &Config{})
	if result.DisabledTools != nil {
		t.Errorf("DisabledTools = %v, want nil", result.DisabledTools)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"file store", func(c *Config) { c.Store = StoreFile }, false},
		{"postgres without url", func(c *Config) { c.Store = StorePostgres }, true},
		{"postgres with url", func(c *Config) { c.Store = StorePostgres; c.DatabaseURL = "postgres://x" }, false},
		{"remote without url", func(c *Config) { c.Store = StoreRemote }, true},
		{"unknown store", func(c *Config) { c.Store = "redis" }, true},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
