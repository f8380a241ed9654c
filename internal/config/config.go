package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		// Driver picks the progress backend: memory, file, redis, postgres or sqlite.
		Driver string `yaml:"driver"`
		Dir    string `yaml:"dir"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz struct {
		TimeLimit     string `yaml:"time_limit"`
		QuestionCount int    `yaml:"question_count"`
		Category      string `yaml:"category"`
		Difficulty    string `yaml:"difficulty"`
		Type          string `yaml:"type"`
		AdvanceDelay  string `yaml:"advance_delay"`
		SaveDelay     string `yaml:"save_delay"`
		SeedTTL       string `yaml:"seed_ttl"`
	} `yaml:"quiz"`
	Provider struct {
		BaseURL     string `yaml:"base_url"`
		Timeout     string `yaml:"timeout"`
		MaxRetries  *int   `yaml:"max_retries"`
		BackoffUnit string `yaml:"backoff_unit"`
	} `yaml:"provider"`
	Auth struct {
		SessionTTL string       `yaml:"session_ttl"`
		Users      []UserConfig `yaml:"users"`
	} `yaml:"auth"`
}

// UserConfig is one configured login. PasswordHash is a bcrypt hash.
type UserConfig struct {
	ID           int    `yaml:"id"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
}

// Load reads YAML config from path. A missing file yields the zero config, so
// every setting falls back to its default.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Seconds parses a duration string into whole seconds, or returns fallback.
func Seconds(raw string, fallback int) int {
	d := TTLDuration(raw, time.Duration(fallback)*time.Second)
	if d < time.Second {
		return fallback
	}
	return int(d / time.Second)
}

// IntOr returns *v, or fallback when v is unset.
func IntOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
