package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	GA4            GA4Config            `yaml:"ga4"`
	Export         ExportConfig         `yaml:"export"`
	KnowledgeGraph KnowledgeGraphConfig `yaml:"knowledge_graph"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// GA4Config holds GA4 Data API configuration
type GA4Config struct {
	// CredentialsPath points at a Google service-account key file. The
	// key is passed opaquely to the OAuth2 layer, never parsed here.
	CredentialsPath string `yaml:"credentials_path"`

	// PropertiesPath points at the flat JSON label→property mapping.
	PropertiesPath string `yaml:"properties_path"`

	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RowLimit       int64  `yaml:"row_limit"`

	// Concurrency caps simultaneous per-property queries during a
	// fan-out. 1 means sequential; keep it low, GA4 quotas are
	// per-credential.
	Concurrency int `yaml:"concurrency"`

	// FailurePolicy is "best_effort" or "fail_fast".
	FailurePolicy string `yaml:"failure_policy"`
}

// Timeout returns the configured timeout as a duration
func (c GA4Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ExportConfig holds report export configuration
type ExportConfig struct {
	LocalPath  string `yaml:"local_path"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain
	AccessKey  string `yaml:"access_key"`  // Static credentials; prefer the default chain
	SecretKey  string `yaml:"secret_key"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c ExportConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "" // Running on ECS or Lambda, use IAM role
	}
	return c.AWSProfile
}

// KnowledgeGraphConfig holds Google Knowledge Graph Search API configuration
type KnowledgeGraphConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c KnowledgeGraphConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.GA4.TimeoutSeconds == 0 {
		cfg.GA4.TimeoutSeconds = 30
	}
	if cfg.GA4.RowLimit == 0 {
		cfg.GA4.RowLimit = 10000
	}
	if cfg.GA4.Concurrency == 0 {
		cfg.GA4.Concurrency = 1
	}
	if cfg.GA4.FailurePolicy == "" {
		cfg.GA4.FailurePolicy = "best_effort"
	}
	if cfg.GA4.PropertiesPath == "" {
		cfg.GA4.PropertiesPath = "config/ga4_properties.json"
	}
	if cfg.Export.LocalPath == "" {
		cfg.Export.LocalPath = "./exports"
	}
	if cfg.Export.AWSRegion == "" {
		cfg.Export.AWSRegion = "us-west-2"
	}
	if cfg.KnowledgeGraph.TimeoutSeconds == 0 {
		cfg.KnowledgeGraph.TimeoutSeconds = 30
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env
// vars, so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("GA4_CREDENTIALS_PATH"); v != "" {
		cfg.GA4.CredentialsPath = v
	}
	if v := os.Getenv("GA4_PROPERTIES_PATH"); v != "" {
		cfg.GA4.PropertiesPath = v
	}
	if v := os.Getenv("GA4_BASE_URL"); v != "" {
		cfg.GA4.BaseURL = v
	}
	if v := os.Getenv("GA4_ROW_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.GA4.RowLimit = n
		}
	}
	if v := os.Getenv("GA4_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GA4.Concurrency = n
		}
	}
	if v := os.Getenv("GA4_FAILURE_POLICY"); v != "" {
		cfg.GA4.FailurePolicy = v
	}
	if v := os.Getenv("KG_API_KEY"); v != "" {
		cfg.KnowledgeGraph.APIKey = v
	}
	if v := os.Getenv("EXPORT_S3_BUCKET"); v != "" {
		cfg.Export.S3Bucket = v
	}
	if v := os.Getenv("EXPORT_S3_PREFIX"); v != "" {
		cfg.Export.S3Prefix = v
	}
	if v := os.Getenv("EXPORT_AWS_REGION"); v != "" {
		cfg.Export.AWSRegion = v
	}
	if v := os.Getenv("EXPORT_AWS_ACCESS_KEY"); v != "" {
		cfg.Export.AccessKey = v
	}
	if v := os.Getenv("EXPORT_AWS_SECRET_KEY"); v != "" {
		cfg.Export.SecretKey = v
	}

	return cfg, nil
}
