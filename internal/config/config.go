// Package config loads the mu configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/whunmr/mu/internal/fileutil"
)

// Config is the contents of config.toml plus the paths derived from it.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Maildir  MaildirConfig  `toml:"maildir"`
	Index    IndexConfig    `toml:"index"`
	Query    QueryConfig    `toml:"query"`
	Server   ServerConfig   `toml:"server"`
	Schedule ScheduleConfig `toml:"schedule"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// DataConfig says where the index lives.
type DataConfig struct {
	DataDir   string `toml:"data_dir"`
	IndexPath string `toml:"index_path"` // defaults to <data_dir>/index.db
}

// MaildirConfig holds the root below which maildirs are indexed.
type MaildirConfig struct {
	Root string `toml:"root"`
}

// IndexConfig tunes the indexer.
type IndexConfig struct {
	Workers      int  `toml:"workers"`        // 0 means GOMAXPROCS
	MaxBodyRunes int  `toml:"max_body_runes"` // 0 means no limit
	Cleanup      bool `toml:"cleanup"`
}

// QueryConfig holds defaults for find and the search API.
type QueryConfig struct {
	BatchSize int    `toml:"batch_size"` // 0 means everything at once
	SortField string `toml:"sort_field"` // field name or shortcut; "" sorts by relevance
	Reverse   bool   `toml:"reverse"`
	Limit     int    `toml:"limit"` // 0 means no limit
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	BindAddr  string  `toml:"bind_addr"`
	APIPort   int     `toml:"api_port"`
	APIKey    string  `toml:"api_key"`
	RateLimit float64 `toml:"rate_limit"` // requests per second per client; 0 disables
	RateBurst int     `toml:"rate_burst"`
}

// ValidateSecure refuses to serve beyond the loopback interface without an
// API key.
func (c ServerConfig) ValidateSecure() error {
	if c.APIKey != "" || isLoopback(c.BindAddr) {
		return nil
	}
	return fmt.Errorf("refusing to bind %s without [server] api_key", c.BindAddr)
}

func isLoopback(host string) bool {
	if host == "" || host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ScheduleConfig controls periodic re-indexing under `mu serve`.
type ScheduleConfig struct {
	Cron    string `toml:"cron"` // standard 5-field cron expression
	Enabled bool   `toml:"enabled"`
}

// DefaultHome returns the default mu home directory.
// Respects the MU_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("MU_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mu"
	}
	return filepath.Join(home, ".mu")
}

// NewDefaultConfig returns a configuration with default values rooted at
// DefaultHome.
func NewDefaultConfig() *Config {
	return newDefault(DefaultHome())
}

func newDefault(homeDir string) *Config {
	root := "Maildir"
	if home, err := os.UserHomeDir(); err == nil {
		root = filepath.Join(home, "Maildir")
	}
	return &Config{
		HomeDir: homeDir,
		Data:    DataConfig{DataDir: homeDir},
		Maildir: MaildirConfig{Root: root},
		Index:   IndexConfig{Cleanup: true},
		Server: ServerConfig{
			BindAddr:  "127.0.0.1",
			APIPort:   8080,
			RateLimit: 10,
			RateBurst: 20,
		},
		Schedule: ScheduleConfig{Cron: "*/15 * * * *"},
	}
}

// Load reads the configuration.
//
// With an explicit path the file must exist, and the home directory and
// relative paths in the file are taken relative to its directory. Otherwise
// config.toml is read from homeDir (or DefaultHome when homeDir is empty)
// and a missing file yields the defaults.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	if homeDir != "" {
		homeDir = expandPath(homeDir)
	} else {
		homeDir = DefaultHome()
	}

	var baseDir string
	if explicit {
		path = expandPath(path)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("stat config: %w", err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		path = abs
		baseDir = filepath.Dir(abs)
		homeDir = baseDir
	} else {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := newDefault(homeDir)
	cfg.configPath = path

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, decodeError(err)
	}

	cfg.Data.DataDir = resolvePath(cfg.Data.DataDir, baseDir)
	cfg.Data.IndexPath = resolvePath(cfg.Data.IndexPath, baseDir)
	cfg.Maildir.Root = resolvePath(cfg.Maildir.Root, baseDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// decodeError adds a hint for the most common TOML mistake, Windows paths
// in double-quoted strings.
func decodeError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return fmt.Errorf("decode config: %w\n"+
			"hint: backslashes in double-quoted strings are escapes; "+
			"use forward slashes (C:/Users/me/Mail) or single quotes ('C:\\Users\\me\\Mail')", err)
	}
	return fmt.Errorf("decode config: %w", err)
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Index.Workers < 0:
		return fmt.Errorf("index.workers must not be negative (got %d)", c.Index.Workers)
	case c.Index.MaxBodyRunes < 0:
		return fmt.Errorf("index.max_body_runes must not be negative (got %d)", c.Index.MaxBodyRunes)
	case c.Query.BatchSize < 0:
		return fmt.Errorf("query.batch_size must not be negative (got %d)", c.Query.BatchSize)
	case c.Query.Limit < 0:
		return fmt.Errorf("query.limit must not be negative (got %d)", c.Query.Limit)
	case c.Server.APIPort < 0 || c.Server.APIPort > 65535:
		return fmt.Errorf("server.api_port out of range (got %d)", c.Server.APIPort)
	case c.Server.RateLimit < 0:
		return fmt.Errorf("server.rate_limit must not be negative")
	case c.Schedule.Enabled && strings.TrimSpace(c.Schedule.Cron) == "":
		return errors.New("schedule.enabled needs schedule.cron")
	}
	return nil
}

// ConfigFilePath returns the path the configuration was (or would be) read
// from.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(c.HomeDir, "config.toml")
}

// IndexPath returns the path of the SQLite index.
func (c *Config) IndexPath() string {
	if c.Data.IndexPath != "" {
		return c.Data.IndexPath
	}
	return filepath.Join(c.Data.DataDir, "index.db")
}

// EnsureHomeDir creates the data directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return fileutil.SecureMkdirAll(filepath.Dir(c.IndexPath()), 0o700)
}

// resolvePath expands ~ and, when baseDir is set, makes a relative path
// relative to it.
func resolvePath(path, baseDir string) string {
	path = expandPath(path)
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// expandPath expands ~ to the user's home directory. On Windows, quotes left
// around a path by CMD are removed first.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if runtime.GOOS == "windows" && len(path) >= 2 {
		if (path[0] == '\'' && path[len(path)-1] == '\'') || (path[0] == '"' && path[len(path)-1] == '"') {
			path = path[1 : len(path)-1]
		}
	}
	return fileutil.ExpandHome(path)
}
