package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Storage       StorageConfig       `yaml:"storage"`
	Mail          MailConfig          `yaml:"mail"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig selects the SQL driver and pool sizing
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// CacheConfig configures the per-user project listing cache
type CacheConfig struct {
	Backend         string        `yaml:"backend"`
	TTL             time.Duration `yaml:"ttl"`
	Size            int           `yaml:"size"`
	RedisURL        string        `yaml:"redis_url"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	RedisPoolSize   int           `yaml:"redis_pool_size"`
	RedisMaxRetries int           `yaml:"redis_max_retries"`
}

// StorageConfig configures the S3 bucket holding document bytes. Documents
// are disabled when Bucket is empty.
type StorageConfig struct {
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3Region       string `yaml:"s3_region"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style"`
	S3CreateBucket bool   `yaml:"s3_create_bucket"`
}

// MailConfig configures invitation delivery
type MailConfig struct {
	Mode          string        `yaml:"mode"`
	SMTPHost      string        `yaml:"smtp_host"`
	SMTPPort      int           `yaml:"smtp_port"`
	SMTPUsername  string        `yaml:"smtp_username"`
	SMTPPassword  string        `yaml:"smtp_password"`
	SMTPTimeout   time.Duration `yaml:"smtp_timeout"`
	From          string        `yaml:"from"`
	InviteSubject string        `yaml:"invite_subject"`
}

// RateLimitConfig configures per-caller request limits; zero disables
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"`
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  32 << 20,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Cache: CacheConfig{
			Backend:       "memory",
			TTL:           300 * time.Second,
			Size:          10000,
			RedisPoolSize: 10,
		},
		Storage: StorageConfig{
			S3Region: "us-east-1",
		},
		Mail: MailConfig{
			Mode:          "log",
			SMTPPort:      587,
			SMTPTimeout:   30 * time.Second,
			From:          "from@example.com",
			InviteSubject: "Project Invitation",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			Burst:             50,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "projecthub",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1.0,
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named
// by PROJECTHUB_CONFIG_FILE (if any), then PROJECTHUB_* environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv("PROJECTHUB_CONFIG_FILE"))
}

// LoadConfigFile is LoadConfig with an explicit file path. An empty path
// skips the file.
func LoadConfigFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields with environment variables; current values are the defaults
func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("PROJECTHUB_HOST", s.Host)
	s.Port = getEnv("PROJECTHUB_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("PROJECTHUB_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("PROJECTHUB_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("PROJECTHUB_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("PROJECTHUB_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxUploadBytes = getEnvInt64("PROJECTHUB_MAX_UPLOAD_BYTES", s.MaxUploadBytes)
	s.HealthPort = getEnv("PROJECTHUB_HEALTH_PORT", s.HealthPort)

	d := &c.Database
	d.Driver = getEnv("PROJECTHUB_DATABASE_DRIVER", d.Driver)
	d.URL = getEnv("PROJECTHUB_DATABASE_URL", d.URL)
	d.MaxOpenConns = getEnvInt("PROJECTHUB_DATABASE_MAX_OPEN_CONNS", d.MaxOpenConns)
	d.MaxIdleConns = getEnvInt("PROJECTHUB_DATABASE_MAX_IDLE_CONNS", d.MaxIdleConns)
	d.ConnMaxLifetime = getEnvDuration("PROJECTHUB_DATABASE_CONN_MAX_LIFETIME", d.ConnMaxLifetime)
	d.AutoMigrate = getEnvBool("PROJECTHUB_DATABASE_AUTO_MIGRATE", d.AutoMigrate)

	ca := &c.Cache
	ca.Backend = getEnv("PROJECTHUB_CACHE_BACKEND", ca.Backend)
	ca.TTL = getEnvDuration("PROJECTHUB_CACHE_TTL", ca.TTL)
	ca.Size = getEnvInt("PROJECTHUB_CACHE_SIZE", ca.Size)
	ca.RedisURL = getEnv("PROJECTHUB_REDIS_URL", ca.RedisURL)
	ca.RedisPassword = getEnv("PROJECTHUB_REDIS_PASSWORD", ca.RedisPassword)
	ca.RedisDB = getEnvInt("PROJECTHUB_REDIS_DB", ca.RedisDB)
	ca.RedisPoolSize = getEnvInt("PROJECTHUB_REDIS_POOL_SIZE", ca.RedisPoolSize)
	ca.RedisMaxRetries = getEnvInt("PROJECTHUB_REDIS_MAX_RETRIES", ca.RedisMaxRetries)

	st := &c.Storage
	st.S3Endpoint = getEnv("PROJECTHUB_S3_ENDPOINT", st.S3Endpoint)
	st.S3Region = getEnv("PROJECTHUB_S3_REGION", st.S3Region)
	st.S3Bucket = getEnv("PROJECTHUB_S3_BUCKET", st.S3Bucket)
	st.S3AccessKey = getEnv("PROJECTHUB_S3_ACCESS_KEY", st.S3AccessKey)
	st.S3SecretKey = getEnv("PROJECTHUB_S3_SECRET_KEY", st.S3SecretKey)
	st.S3UsePathStyle = getEnvBool("PROJECTHUB_S3_USE_PATH_STYLE", st.S3UsePathStyle)
	st.S3CreateBucket = getEnvBool("PROJECTHUB_S3_CREATE_BUCKET", st.S3CreateBucket)

	m := &c.Mail
	m.Mode = getEnv("PROJECTHUB_MAIL_MODE", m.Mode)
	m.SMTPHost = getEnv("PROJECTHUB_SMTP_HOST", m.SMTPHost)
	m.SMTPPort = getEnvInt("PROJECTHUB_SMTP_PORT", m.SMTPPort)
	m.SMTPUsername = getEnv("PROJECTHUB_SMTP_USERNAME", m.SMTPUsername)
	m.SMTPPassword = getEnv("PROJECTHUB_SMTP_PASSWORD", m.SMTPPassword)
	m.SMTPTimeout = getEnvDuration("PROJECTHUB_SMTP_TIMEOUT", m.SMTPTimeout)
	m.From = getEnv("PROJECTHUB_MAIL_FROM", m.From)
	m.InviteSubject = getEnv("PROJECTHUB_INVITE_SUBJECT", m.InviteSubject)

	rl := &c.RateLimit
	rl.RequestsPerMinute = getEnvInt("PROJECTHUB_RATE_LIMIT_PER_MINUTE", rl.RequestsPerMinute)
	rl.Burst = getEnvInt("PROJECTHUB_RATE_LIMIT_BURST", rl.Burst)

	o := &c.Observability
	o.LogLevel = strings.ToLower(getEnv("PROJECTHUB_LOG_LEVEL", o.LogLevel))
	o.MetricsEnabled = getEnvBool("PROJECTHUB_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("PROJECTHUB_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("PROJECTHUB_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("PROJECTHUB_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("PROJECTHUB_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("PROJECTHUB_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("PROJECTHUB_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	switch c.Cache.Backend {
	case "memory":
		if c.Cache.Size <= 0 {
			return fmt.Errorf("cache size must be positive for the memory backend")
		}
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be memory or redis)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	switch c.Mail.Mode {
	case "log":
	case "smtp":
		if c.Mail.SMTPHost == "" {
			return fmt.Errorf("SMTP host is required when mail mode is smtp")
		}
	default:
		return fmt.Errorf("invalid mail mode: %s (must be smtp or log)", c.Mail.Mode)
	}
	if c.Mail.From == "" {
		return fmt.Errorf("mail from address is required")
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// DocumentsEnabled reports whether an object store is configured
func (c *Config) DocumentsEnabled() bool {
	return c.Storage.S3Bucket != ""
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
// Bare integers are read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
