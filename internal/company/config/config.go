// Package config loads the company service configuration from a YAML file
// and lets environment variables (optionally from a .env file) override it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config struct for YAML configuration
type Config struct {
	GRPCPort int `yaml:"GRPC_PORT"`
	HTTPPort int `yaml:"HTTP_PORT"`

	DBDriver   string `yaml:"DB_DRIVER"`
	DBHost     string `yaml:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT"`
	DBUser     string `yaml:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME"`
	DBSSLMode  string `yaml:"DB_SSLMODE"`
	DBPath     string `yaml:"DB_PATH"`

	KafkaBrokers []string `yaml:"KAFKA_BROKERS"`
	Topic        string   `yaml:"TOPIC"`
	JWTSecret    string   `yaml:"JWT_SECRET"`

	// BlobBackend selects the blob store: "s3", "disk" or "memory".
	BlobBackend string `yaml:"BLOB_BACKEND"`
	UploadDir   string `yaml:"UPLOAD_DIR"`
	UploadURL   string `yaml:"UPLOAD_URL"`

	S3Region          string `yaml:"S3_REGION"`
	S3Bucket          string `yaml:"S3_BUCKET"`
	S3AccessKeyID     string `yaml:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `yaml:"S3_SECRET_ACCESS_KEY"`
	S3Endpoint        string `yaml:"S3_ENDPOINT"`
	S3UsePathStyle    bool   `yaml:"S3_USE_PATH_STYLE"`
	S3PublicURL       string `yaml:"S3_PUBLIC_URL"`
	S3PublicRead      bool   `yaml:"S3_PUBLIC_READ"`

	MaxUploadBytes   int64    `yaml:"MAX_UPLOAD_BYTES"`
	DefaultPageSize  int      `yaml:"DEFAULT_PAGE_SIZE"`
	CORSOrigins      []string `yaml:"CORS_ORIGINS"`
	ReconcileGroupID string   `yaml:"RECONCILE_GROUP_ID"`
	ReconcileOutput  string   `yaml:"RECONCILE_OUTPUT"`
}

// DefaultPath is where the service looks for its YAML file unless
// COMPANY_CONFIG says otherwise.
var DefaultPath = filepath.Join("internal", "company", "config", "config.yaml")

// Default returns the configuration used for keys absent from every source.
func Default() *Config {
	return &Config{
		GRPCPort:         50051,
		HTTPPort:         5000,
		DBDriver:         "postgres",
		DBPort:           5432,
		DBSSLMode:        "disable",
		Topic:            "company_events",
		BlobBackend:      "disk",
		UploadDir:        "uploads",
		UploadURL:        "/uploads",
		S3Region:         "us-east-1",
		MaxUploadBytes:   10 << 20,
		DefaultPageSize:  6,
		CORSOrigins:      []string{"*"},
		ReconcileGroupID: "company-reconciler",
		ReconcileOutput:  "orphaned-assets.jsonl",
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A .env file in the working directory is loaded
// first when present. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Path returns the config file location, honouring COMPANY_CONFIG.
func Path() string {
	if p := os.Getenv("COMPANY_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DB_DRIVER":            &c.DBDriver,
		"DB_HOST":              &c.DBHost,
		"DB_USER":              &c.DBUser,
		"DB_PASSWORD":          &c.DBPassword,
		"DB_NAME":              &c.DBName,
		"DB_SSLMODE":           &c.DBSSLMode,
		"DB_PATH":              &c.DBPath,
		"TOPIC":                &c.Topic,
		"JWT_SECRET":           &c.JWTSecret,
		"BLOB_BACKEND":         &c.BlobBackend,
		"UPLOAD_DIR":           &c.UploadDir,
		"UPLOAD_URL":           &c.UploadURL,
		"S3_REGION":            &c.S3Region,
		"S3_BUCKET":            &c.S3Bucket,
		"S3_ACCESS_KEY_ID":     &c.S3AccessKeyID,
		"S3_SECRET_ACCESS_KEY": &c.S3SecretAccessKey,
		"S3_ENDPOINT":          &c.S3Endpoint,
		"S3_PUBLIC_URL":        &c.S3PublicURL,
		"RECONCILE_GROUP_ID":   &c.ReconcileGroupID,
		"RECONCILE_OUTPUT":     &c.ReconcileOutput,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"GRPC_PORT":         &c.GRPCPort,
		"HTTP_PORT":         &c.HTTPPort,
		"DB_PORT":           &c.DBPort,
		"DEFAULT_PAGE_SIZE": &c.DefaultPageSize,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}
	// PORT is what most platforms inject for the HTTP listener.
	if v, ok := os.LookupEnv("PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.HTTPPort = n
	}

	if v, ok := os.LookupEnv("MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}

	bools := map[string]*bool{
		"S3_USE_PATH_STYLE": &c.S3UsePathStyle,
		"S3_PUBLIC_READ":    &c.S3PublicRead,
	}
	for key, dst := range bools {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = b
		}
	}

	lists := map[string]*[]string{
		"KAFKA_BROKERS": &c.KafkaBrokers,
		"CORS_ORIGINS":  &c.CORSOrigins,
	}
	for key, dst := range lists {
		if v, ok := os.LookupEnv(key); ok {
			*dst = splitList(v)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	// Mutating and admin routes reject every request without it.
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.BlobBackend {
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 blob backend")
		}
	case "disk":
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for the disk blob backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}
