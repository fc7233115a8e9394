package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store kinds.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreFile     = "file"
	StoreRemote   = "remote"
)

// Config holds application configuration.
type Config struct {
	// AppEnv selects logging output: "development" logs to the console at debug level.
	AppEnv string `json:"app_env,omitempty"`

	// Store selects the wish store: sqlite (default), postgres, file, or remote.
	Store string `json:"store,omitempty"`

	// DatabaseURL is the Postgres connection string (store=postgres).
	DatabaseURL string `json:"database_url,omitempty"`

	// RemoteURL is the base URL of a santa JSON API, e.g. http://host:8080/api (store=remote).
	RemoteURL string `json:"remote_url,omitempty"`

	// Bind and Port control the web server listen address.
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// AdminPassword is the shared moderation secret. Empty disables admin login.
	// This is a UX gate, not access control for anything sensitive.
	AdminPassword string `json:"admin_password,omitempty"`

	// PageSize is the number of wishes per browse page.
	PageSize int `json:"page_size,omitempty"`

	// FeedLimit is how many recent events the activity feed shows.
	FeedLimit int `json:"feed_limit,omitempty"`

	// EventRetention bounds the number of events a store keeps.
	EventRetention int `json:"event_retention,omitempty"`

	// Polling intervals and popup timings, in milliseconds.
	BrowserPollMS  int `json:"browser_poll_ms,omitempty"`
	FeedPollMS     int `json:"feed_poll_ms,omitempty"`
	PopupPollMS    int `json:"popup_poll_ms,omitempty"`
	PopupVisibleMS int `json:"popup_visible_ms,omitempty"`
	PopupFadeMS    int `json:"popup_fade_ms,omitempty"`

	// OptionalCategory lets wishes be submitted without a category.
	OptionalCategory bool `json:"optional_category,omitempty"`

	// ChannelURL is the subscription channel shown in the confirmation step.
	ChannelURL string `json:"channel_url,omitempty"`

	// GeoIPDBPath points to a MaxMind country database used to tag visitors.
	GeoIPDBPath string `json:"geoip_db_path,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AppEnv:         "production",
		Store:          StoreSQLite,
		Bind:           "127.0.0.1",
		Port:           8080,
		PageSize:       9,
		FeedLimit:      10,
		EventRetention: 50,
		BrowserPollMS:  5000,
		FeedPollMS:     3000,
		PopupPollMS:    3000,
		PopupVisibleMS: 2700,
		PopupFadeMS:    300,
		ChannelURL:     "https://t.me/tainiy_santas",
	}
}

// BrowserPoll returns the browser refresh interval.
func (c *Config) BrowserPoll() time.Duration { return ms(c.BrowserPollMS) }

// FeedPoll returns the activity feed refresh interval.
func (c *Config) FeedPoll() time.Duration { return ms(c.FeedPollMS) }

// PopupPoll returns the notification popup refill interval.
func (c *Config) PopupPoll() time.Duration { return ms(c.PopupPollMS) }

// PopupVisible returns how long a single notification stays on screen.
func (c *Config) PopupVisible() time.Duration { return ms(c.PopupVisibleMS) }

// PopupFade returns the fade-out gap between notifications.
func (c *Config) PopupFade() time.Duration { return ms(c.PopupFadeMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Load loads configuration from baseDir/config.json and applies environment overrides.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.santa.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return ApplyEnv(cfg, os.LookupEnv), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables onto cfg. Unset or empty variables
// leave the existing value; unparsable integers are ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) *Config {
	env := &Config{
		AppEnv:        getEnv(lookup, "APP_ENV"),
		Store:         getEnv(lookup, "SANTA_STORE"),
		DatabaseURL:   getEnv(lookup, "DATABASE_URL"),
		RemoteURL:     getEnv(lookup, "SANTA_REMOTE_URL"),
		Bind:          getEnv(lookup, "SANTA_BIND"),
		Port:          getEnvInt(lookup, "PORT"),
		AdminPassword: getEnv(lookup, "SANTA_ADMIN_PASSWORD"),
		ChannelURL:    getEnv(lookup, "SANTA_CHANNEL_URL"),
		GeoIPDBPath:   getEnv(lookup, "GEOIP_DB_PATH"),
	}
	return Merge(cfg, env)
}

func getEnv(lookup LookupFunc, key string) string {
	if v, ok := lookup(key); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func getEnvInt(lookup LookupFunc, key string) int {
	if v := getEnv(lookup, key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return 0
}

// Merge combines base and overlay configs.
// Overlay values take precedence for non-zero scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		AppEnv:         pickString(overlay.AppEnv, base.AppEnv),
		Store:          pickString(overlay.Store, base.Store),
		DatabaseURL:    pickString(overlay.DatabaseURL, base.DatabaseURL),
		RemoteURL:      pickString(overlay.RemoteURL, base.RemoteURL),
		Bind:           pickString(overlay.Bind, base.Bind),
		Port:           pickInt(overlay.Port, base.Port),
		AdminPassword:  pickString(overlay.AdminPassword, base.AdminPassword),
		PageSize:       pickInt(overlay.PageSize, base.PageSize),
		FeedLimit:      pickInt(overlay.FeedLimit, base.FeedLimit),
		EventRetention: pickInt(overlay.EventRetention, base.EventRetention),
		BrowserPollMS:  pickInt(overlay.BrowserPollMS, base.BrowserPollMS),
		FeedPollMS:     pickInt(overlay.FeedPollMS, base.FeedPollMS),
		PopupPollMS:    pickInt(overlay.PopupPollMS, base.PopupPollMS),
		PopupVisibleMS: pickInt(overlay.PopupVisibleMS, base.PopupVisibleMS),
		PopupFadeMS:    pickInt(overlay.PopupFadeMS, base.PopupFadeMS),
		ChannelURL:     pickString(overlay.ChannelURL, base.ChannelURL),
		GeoIPDBPath:    pickString(overlay.GeoIPDBPath, base.GeoIPDBPath),
		DBMaxOpenConns: pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns: pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	// Booleans: overlay wins if true, else base
	result.OptionalCategory = base.OptionalCategory || overlay.OptionalCategory

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// Validate checks that the selected store has what it needs.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreFile:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for store=postgres")
		}
	case StoreRemote:
		if c.RemoteURL == "" {
			return errors.New("remote_url is required for store=remote")
		}
	default:
		return errors.New("store must be one of: sqlite, postgres, file, remote")
	}
	if c.PageSize <= 0 {
		return errors.New("page_size must be positive")
	}
	return nil
}
