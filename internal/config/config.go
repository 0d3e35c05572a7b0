package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Flickr   FlickrConfig   `yaml:"flickr"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// FlickrConfig drives the photo search and image downloads.
// Page 0 means "pick a random page up to MaxPage" on every search, so
// successive new-collection requests return different photo sets.
type FlickrConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	RadiusKM int           `yaml:"radius_km"`
	PerPage  int           `yaml:"per_page"`
	Page     int           `yaml:"page"`
	MaxPage  int           `yaml:"max_page"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Flickr.BaseURL == "" {
		cfg.Flickr.BaseURL = "https://www.flickr.com/services/rest/"
	}
	if cfg.Flickr.RadiusKM == 0 {
		cfg.Flickr.RadiusKM = 5
	}
	if cfg.Flickr.PerPage == 0 {
		cfg.Flickr.PerPage = 100
	}
	if cfg.Flickr.MaxPage == 0 {
		cfg.Flickr.MaxPage = 10
	}
	if cfg.Flickr.Timeout == 0 {
		cfg.Flickr.Timeout = 30 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VT_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("VT_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("VT_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("VT_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("VT_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("VT_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("VT_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("VT_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("VT_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("VT_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("VT_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("VT_FLICKR_API_KEY"); v != "" {
		cfg.Flickr.APIKey = v
	}
	if v := os.Getenv("VT_FLICKR_PAGE"); v != "" {
		if page, err := strconv.Atoi(v); err == nil {
			cfg.Flickr.Page = page
		}
	}
}
