package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port          string
	Environment   string
	StorageDriver string
	DatabaseURL   string
	JWKSURL       string // empty disables token auth in favour of X-User-* headers
	CORSOrigins   string
	TablePrefix   string
	RedisURL      string

	// Search
	MeiliURL    string
	MeiliAPIKey string
	MeiliIndex  string

	// Attachment storage; an empty endpoint keeps blobs in memory
	MinIO MinIOConfig

	Security Security
	Limits   Limits

	MembershipCacheTTL time.Duration
	EventBuffer        int
	LogDir             string
	ConfigFile         string

	// Debug flags
	Debug bool
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Security is the page listing policy.
type Security struct {
	HideRestrictedByOwner bool `yaml:"hide_restricted_by_owner"`
	HideRestrictedByGroup bool `yaml:"hide_restricted_by_group"`
}

// Limits bounds uploads and background work.
type Limits struct {
	MaxAttachmentSize int64 `yaml:"max_attachment_size"`
	GroupFanOut       int   `yaml:"group_fan_out"`
}

// fileConfig is the layout of CONFIG_FILE.
type fileConfig struct {
	Security Security `yaml:"security"`
	Limits   Limits   `yaml:"limits"`
}

// Load reads the environment, then CONFIG_FILE when set. Environment
// variables win over the file for the settings both can carry.
func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   env,
		StorageDriver: getEnv("STORAGE_DRIVER", DriverPostgres),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		JWKSURL:       getEnv("JWKS_URL", ""),
		CORSOrigins:   getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:   getTablePrefix(env),
		RedisURL:      getEnv("REDIS_URL", ""),
		MeiliURL:      getEnv("MEILI_URL", ""),
		MeiliAPIKey:   getEnv("MEILI_API_KEY", ""),
		MeiliIndex:    getEnv("MEILI_INDEX", "pages"),
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "attachments"),
		},
		Limits: Limits{
			MaxAttachmentSize: DefaultMaxAttachmentSize,
			GroupFanOut:       DefaultGroupFanOut,
		},
		LogDir:     getEnv("LOG_DIR", ""),
		ConfigFile: getEnv("CONFIG_FILE", ""),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}

	if cfg.ConfigFile != "" {
		if err := cfg.loadFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	var err error
	if cfg.MinIO.UseSSL, err = getBool("MINIO_USE_SSL", false); err != nil {
		return nil, err
	}
	if cfg.Security.HideRestrictedByOwner, err = getBool("HIDE_RESTRICTED_BY_OWNER", cfg.Security.HideRestrictedByOwner); err != nil {
		return nil, err
	}
	if cfg.Security.HideRestrictedByGroup, err = getBool("HIDE_RESTRICTED_BY_GROUP", cfg.Security.HideRestrictedByGroup); err != nil {
		return nil, err
	}
	if cfg.MembershipCacheTTL, err = getDuration("MEMBERSHIP_CACHE_TTL", DefaultMembershipCacheTTL); err != nil {
		return nil, err
	}
	if cfg.EventBuffer, err = getInt("EVENT_BUFFER", DefaultEventBuffer); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	fc := fileConfig{Security: c.Security, Limits: c.Limits}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.Security = fc.Security
	c.Limits = fc.Limits
	return nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("EVENT_BUFFER must be positive, got %d", c.EventBuffer)
	}
	if c.Limits.MaxAttachmentSize <= 0 {
		return fmt.Errorf("max_attachment_size must be positive")
	}
	return nil
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
