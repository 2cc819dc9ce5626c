package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported platform providers for device.platform.
const (
	PlatformHost    = "host"
	PlatformProfile = "profile"
)

// Config is the root configuration structure for devicekit.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// DeviceConfig selects the platform provider and tunes the resolution engine.
type DeviceConfig struct {
	// Platform is the capability provider: "host" or "profile".
	Platform string `yaml:"platform"`

	// ProfilePath is the YAML device profile used by the "profile" platform.
	ProfilePath string `yaml:"profile_path"`

	// WatchProfile reloads the profile and refreshes properties when the file changes.
	WatchProfile bool `yaml:"watch_profile"`

	// SysfsRoot is the sysfs mount read by the "host" platform.
	// Default: "/sys"
	SysfsRoot string `yaml:"sysfs_root"`

	// ProbeTimeout bounds each probe. Zero disables the timeout.
	// Default: 10s
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// RefreshInterval schedules periodic refresh passes. Zero disables them.
	// Default: 5m
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// DispatcherQueue is the capacity of the UI-affine dispatcher queue.
	// Default: 64
	DispatcherQueue int `yaml:"dispatcher_queue"`

	// FileRoot is the directory served by the file manager sub-service.
	FileRoot string `yaml:"file_root"`

	// SecureStoreFallback keys secure storage when the device id is not readable.
	SecureStoreFallback string `yaml:"secure_store_fallback"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	// Enabled protects mutating endpoints with bearer tokens.
	Enabled        bool   `yaml:"enabled"`
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// RateLimitConfig contains rate limiting settings for refresh requests.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DEVICEKIT_SECTION_KEY
// For example: DEVICEKIT_DATABASE_PATH, DEVICEKIT_DEVICE_PLATFORM
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration, used when no file is present.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Platform:        PlatformHost,
			SysfsRoot:       "/sys",
			ProbeTimeout:    10 * time.Second,
			RefreshInterval: 5 * time.Minute,
			DispatcherQueue: 64,
			FileRoot:        "./data/files",
		},
		Database: DatabaseConfig{
			Path:        "./data/devicekit.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "devicekit",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 6,
				Burst:             2,
			},
		},
	}
}

// envOverrides maps DEVICEKIT_* variables onto config fields. Values that
// fail to parse are ignored; Validate reports the resulting config.
var envOverrides = []struct {
	name  string
	apply func(c *Config, v string)
}{
	{"DEVICEKIT_DEVICE_PLATFORM", func(c *Config, v string) { c.Device.Platform = v }},
	{"DEVICEKIT_DEVICE_PROFILE", func(c *Config, v string) { c.Device.ProfilePath = v }},
	{"DEVICEKIT_DEVICE_PROBE_TIMEOUT", func(c *Config, v string) { setDuration(&c.Device.ProbeTimeout, v) }},
	{"DEVICEKIT_DEVICE_REFRESH_INTERVAL", func(c *Config, v string) { setDuration(&c.Device.RefreshInterval, v) }},
	{"DEVICEKIT_DEVICE_FILE_ROOT", func(c *Config, v string) { c.Device.FileRoot = v }},
	{"DEVICEKIT_SECURE_STORE_FALLBACK", func(c *Config, v string) { c.Device.SecureStoreFallback = v }},
	{"DEVICEKIT_DATABASE_PATH", func(c *Config, v string) { c.Database.Path = v }},
	{"DEVICEKIT_MQTT_HOST", func(c *Config, v string) { c.MQTT.Broker.Host = v }},
	{"DEVICEKIT_MQTT_USERNAME", func(c *Config, v string) { c.MQTT.Auth.Username = v }},
	{"DEVICEKIT_MQTT_PASSWORD", func(c *Config, v string) { c.MQTT.Auth.Password = v }},
	{"DEVICEKIT_API_HOST", func(c *Config, v string) { c.API.Host = v }},
	{"DEVICEKIT_API_PORT", func(c *Config, v string) { setInt(&c.API.Port, v) }},
	{"DEVICEKIT_INFLUXDB_TOKEN", func(c *Config, v string) { c.InfluxDB.Token = v }},
	{"DEVICEKIT_JWT_SECRET", func(c *Config, v string) { c.Security.JWT.Secret = v }},
	{"DEVICEKIT_LOG_LEVEL", func(c *Config, v string) { c.Logging.Level = v }},
}

// applyEnvOverrides applies every set variable in envOverrides.
func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(cfg, v)
		}
	}
}

func setDuration(dst *time.Duration, v string) {
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}

func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch c.Device.Platform {
	case PlatformHost:
	case PlatformProfile:
		if c.Device.ProfilePath == "" {
			errs = append(errs, "device.profile_path is required for the profile platform")
		}
	default:
		errs = append(errs, fmt.Sprintf("device.platform %q is not supported (host, profile)", c.Device.Platform))
	}
	if c.Device.ProbeTimeout < 0 {
		errs = append(errs, "device.probe_timeout must not be negative")
	}
	if c.Device.RefreshInterval < 0 {
		errs = append(errs, "device.refresh_interval must not be negative")
	}
	if c.Device.DispatcherQueue < 1 {
		errs = append(errs, "device.dispatcher_queue must be at least 1")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Refresh is the only mutating endpoint; a forged token only costs a probe pass,
	// but a short secret is still rejected.
	const minJWTSecretLength = 32
	if c.Security.JWT.Enabled {
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set DEVICEKIT_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters")
		}
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RequestsPerMinute < 1 {
		errs = append(errs, "security.rate_limit.requests_per_minute must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the read timeout as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout returns the idle timeout as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}
