package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	xdgAppName = "eisen"
	configFile = "config.json"
	envPrefix  = "EISEN"
)

type SyncConfig struct {
	Backend   string        `mapstructure:"backend"`
	Owner     string        `mapstructure:"owner"`
	Repo      string        `mapstructure:"repo"`
	Path      string        `mapstructure:"path"`
	Branch    string        `mapstructure:"branch"`
	APIBase   string        `mapstructure:"api_base"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisKey  string        `mapstructure:"redis_key"`
	Interval  time.Duration `mapstructure:"interval"`
	Debounce  time.Duration `mapstructure:"debounce"`
}

type DeadlineConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	InitialDelay  time.Duration `mapstructure:"initial_delay"`
	SnoozeMinutes int           `mapstructure:"snooze_minutes"`
}

type Config struct {
	Storage  string         `mapstructure:"storage"`
	DataDir  string         `mapstructure:"data_dir"`
	Calendar string         `mapstructure:"calendar"`
	Listen   string         `mapstructure:"listen"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Deadline DeadlineConfig `mapstructure:"deadline"`
}

var defaults = map[string]any{
	"storage":                 "file",
	"data_dir":                "",
	"calendar":                "Tasks",
	"listen":                  "127.0.0.1:8787",
	"sync.backend":            "github",
	"sync.owner":              "",
	"sync.repo":               "",
	"sync.path":               "eisenhower-tasks.json",
	"sync.branch":             "main",
	"sync.api_base":           "https://api.github.com",
	"sync.redis_addr":         "",
	"sync.redis_key":          "eisen:snapshot",
	"sync.interval":           "30s",
	"sync.debounce":           "2s",
	"deadline.interval":       "30s",
	"deadline.initial_delay":  "2s",
	"deadline.snooze_minutes": 15,
}

// Keys lists every recognised setting.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName, configFile), nil
}

func newViper(path string, env bool) *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if env {
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	return v
}

func read(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// Load reads the config file at path (the default location when empty),
// then applies EISEN_* environment overrides. A .env file in the working
// directory is loaded into the environment first. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	_ = godotenv.Load(".env")

	v := newViper(path, true)
	if err := read(v, path); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Get returns the effective value of key.
func Get(path, key string) (any, error) {
	if _, ok := defaults[key]; !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	v := newViper(path, true)
	if err := read(v, path); err != nil {
		return nil, err
	}
	return v.Get(key), nil
}

// Set writes key=value to the file at path. Environment overrides are not
// written back.
func Set(path, key, value string) error {
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	v := newViper(path, false)
	if err := read(v, path); err != nil {
		return err
	}
	v.Set(key, value)

	var probe Config
	if err := v.Unmarshal(&probe); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Chmod(path, 0600)
}
