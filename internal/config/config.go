package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	AWS      AWSConfig      `yaml:"aws"`
	APNS     APNSConfig     `yaml:"apns"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Matching MatchingConfig `yaml:"matching"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	// PublicBaseURL is the browser-facing origin used to build event
	// share links and upload redirect links.
	PublicBaseURL string `yaml:"public_base_url"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region     string `yaml:"region"`
	S3Bucket   string `yaml:"s3_bucket"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Endpoint   string `yaml:"endpoint"`    // custom S3-compatible endpoint, optional
	DisableSSL bool   `yaml:"disable_ssl"` // optional, for HTTP endpoints
}

// APNSConfig holds Apple push notification configuration
type APNSConfig struct {
	Enabled bool   `yaml:"enabled"`
	KeyFile string `yaml:"key_file"`
	KeyID   string `yaml:"key_id"`
	TeamID  string `yaml:"team_id"`
	Topic   string `yaml:"topic"`
	Sandbox bool   `yaml:"sandbox"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// MatchingConfig holds the knobs for the face-matching workflow
type MatchingConfig struct {
	BatchSize        int     `yaml:"batch_size"`        // comparisons per batch
	BatchDelayMS     int     `yaml:"batch_delay_ms"`    // pause between batches
	CompareThreshold float64 `yaml:"compare_threshold"` // passed to the comparison call
	AcceptThreshold  float64 `yaml:"accept_threshold"`  // applied when keeping a candidate
	MaxImages        int     `yaml:"max_images"`        // cap on listed event images
	DownloadDelayMS  int     `yaml:"download_delay_ms"` // pacing for bulk listing, 0 = none
}

// BatchDelay returns the inter-batch pause as a duration
func (m *MatchingConfig) BatchDelay() time.Duration {
	return time.Duration(m.BatchDelayMS) * time.Millisecond
}

// DownloadDelay returns the bulk-listing pacing as a duration
func (m *MatchingConfig) DownloadDelay() time.Duration {
	return time.Duration(m.DownloadDelayMS) * time.Millisecond
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Matching.applyDefaults()

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func (m *MatchingConfig) applyDefaults() {
	if m.BatchSize <= 0 {
		m.BatchSize = 10
	}
	if m.BatchDelayMS <= 0 {
		m.BatchDelayMS = 1000
	}
	if m.CompareThreshold <= 0 {
		m.CompareThreshold = 80
	}
	if m.AcceptThreshold <= 0 {
		m.AcceptThreshold = 70
	}
	if m.MaxImages <= 0 {
		m.MaxImages = 1000
	}
}
