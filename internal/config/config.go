// Package config resolves runtime settings from defaults, an optional YAML
// file, an optional .env file and the process environment, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment keys.
const (
	EnvConfigFile     = "GARAGE_CONFIG"
	EnvAPIURL         = "GARAGE_API_URL"
	EnvSessionBackend = "GARAGE_SESSION_BACKEND"
	EnvSessionDir     = "GARAGE_SESSION_DIR"
	EnvRedisAddr      = "GARAGE_REDIS_ADDR"
	EnvRedisPassword  = "GARAGE_REDIS_PASSWORD"
	EnvRedisDB        = "GARAGE_REDIS_DB"
	EnvRedisPrefix    = "GARAGE_REDIS_PREFIX"
	EnvLogLevel       = "GARAGE_LOG_LEVEL"
	EnvLogFile        = "GARAGE_LOG_FILE"
	EnvTimeout        = "GARAGE_TIMEOUT"
)

// Session store backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Defaults.
const (
	DefaultAPIURL      = "https://zohaib.no/api"
	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "garage"
	DefaultLogLevel    = "info"
	DefaultTimeout     = 30 * time.Second
)

// Config is the resolved configuration.
type Config struct {
	APIURL  string
	Timeout time.Duration

	SessionBackend string
	SessionDir     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	LogLevel string
	LogFile  string
}

// fileConfig mirrors the YAML layout. Pointers tell "unset" from zero.
type fileConfig struct {
	APIURL  string         `yaml:"api_url"`
	Timeout *time.Duration `yaml:"timeout"`
	Session struct {
		Backend string `yaml:"backend"`
		Dir     string `yaml:"dir"`
	} `yaml:"session"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       *int   `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Dir returns ~/.garage.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".garage"), nil
}

// Load reads .env from the working directory (if any), then the YAML file
// named by GARAGE_CONFIG or ~/.garage/config.yaml (if any), then the
// environment.
func Load() (*Config, error) {
	return LoadFrom(".env", "")
}

// LoadFrom is Load with explicit file locations. An empty yamlPath falls
// back to GARAGE_CONFIG and then ~/.garage/config.yaml. Missing files are
// not an error.
func LoadFrom(envPath, yamlPath string) (*Config, error) {
	if envPath != "" {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", envPath, err)
		}
	}

	base, err := Dir()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		APIURL:         DefaultAPIURL,
		Timeout:        DefaultTimeout,
		SessionBackend: BackendFile,
		SessionDir:     filepath.Join(base, "session"),
		RedisAddr:      DefaultRedisAddr,
		RedisPrefix:    DefaultRedisPrefix,
		LogLevel:       DefaultLogLevel,
		LogFile:        filepath.Join(base, "garage.log"),
	}

	if yamlPath == "" {
		yamlPath = envString(EnvConfigFile, filepath.Join(base, "config.yaml"))
	}
	if err := cfg.mergeFile(yamlPath); err != nil {
		return nil, err
	}
	cfg.mergeEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&c.APIURL, fc.APIURL)
	if fc.Timeout != nil {
		c.Timeout = *fc.Timeout
	}
	setString(&c.SessionBackend, fc.Session.Backend)
	setString(&c.SessionDir, expandHome(fc.Session.Dir))
	setString(&c.RedisAddr, fc.Redis.Addr)
	setString(&c.RedisPassword, fc.Redis.Password)
	if fc.Redis.DB != nil {
		c.RedisDB = *fc.Redis.DB
	}
	setString(&c.RedisPrefix, fc.Redis.Prefix)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFile, expandHome(fc.Log.File))
	return nil
}

func (c *Config) mergeEnv() {
	c.APIURL = envString(EnvAPIURL, c.APIURL)
	c.Timeout = envDuration(EnvTimeout, c.Timeout)
	c.SessionBackend = strings.ToLower(envString(EnvSessionBackend, c.SessionBackend))
	c.SessionDir = expandHome(envString(EnvSessionDir, c.SessionDir))
	c.RedisAddr = envString(EnvRedisAddr, c.RedisAddr)
	c.RedisPassword = envString(EnvRedisPassword, c.RedisPassword)
	c.RedisDB = envInt(EnvRedisDB, c.RedisDB)
	c.RedisPrefix = envString(EnvRedisPrefix, c.RedisPrefix)
	c.LogLevel = envString(EnvLogLevel, c.LogLevel)
	c.LogFile = expandHome(envString(EnvLogFile, c.LogFile))
}

// Validate checks the values that would otherwise fail later and obscurely.
func (c *Config) Validate() error {
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("config: %s must be an http(s) URL, got %q", EnvAPIURL, c.APIURL)
	}
	switch c.SessionBackend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("config: unknown session backend %q (want file, redis or memory)", c.SessionBackend)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: negative timeout %s", c.Timeout)
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
