// Package config loads the application configuration from YAML with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`
	Language string `yaml:"language"`

	SupabaseURL     string `yaml:"supabaseURL"`
	SupabaseAnonKey string `yaml:"supabaseAnonKey"`

	GeneratorURL    string `yaml:"generatorURL"`
	GeneratorAPIKey string `yaml:"generatorAPIKey"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	SignupRateLimitPerMinute int `yaml:"signupRateLimitPerMinute"`
	SigninRateLimitPerMinute int `yaml:"signinRateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.SupabaseURL = v
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		cfg.SupabaseAnonKey = v
	}
	if v := os.Getenv("GENERATOR_URL"); v != "" {
		cfg.GeneratorURL = v
	}
	if v := os.Getenv("GENERATOR_API_KEY"); v != "" {
		cfg.GeneratorAPIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("FLOWFORGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLOWFORGE_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv("FLOWFORGE_SIGNUP_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SignupRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("FLOWFORGE_SIGNIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SigninRateLimitPerMinute = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.SupabaseURL) == "" {
		return errors.New("config: supabaseURL is required (set SUPABASE_URL)")
	}
	if strings.TrimSpace(cfg.SupabaseAnonKey) == "" {
		return errors.New("config: supabaseAnonKey is required (set SUPABASE_ANON_KEY)")
	}
	if strings.TrimSpace(cfg.GeneratorURL) == "" {
		return errors.New("config: generatorURL is required (set GENERATOR_URL)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for local storage and rate limiting")
	}
	if cfg.SignupRateLimitPerMinute < 0 || cfg.SigninRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	return nil
}
