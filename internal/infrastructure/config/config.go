package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for robotd.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Robot      RobotConfig      `yaml:"robot"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Sequences  SequencesConfig  `yaml:"sequences"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Timezone is the IANA zone schedules are evaluated in (e.g. "Europe/London").
	Timezone string `yaml:"timezone"`
}

// RobotConfig identifies the controlled device.
type RobotConfig struct {
	// ID is used to build the device's command and ack topics.
	ID string `yaml:"id"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
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

// Dispatcher modes.
const (
	DispatcherModeMQTT      = "mqtt"
	DispatcherModeSimulated = "simulated"
)

// DispatcherConfig selects and tunes the command transport to the robot.
type DispatcherConfig struct {
	// Mode is "mqtt" (real device) or "simulated" (acknowledge everything locally).
	Mode string `yaml:"mode"`

	// AckTimeout bounds how long a single command waits for the device ack (seconds).
	AckTimeout int `yaml:"ack_timeout"`

	// SimulatedLatencyMS delays simulated acknowledgements.
	SimulatedLatencyMS int `yaml:"simulated_latency_ms"`
}

// ExecutorConfig contains sequence executor settings.
type ExecutorConfig struct {
	// MaxQueue bounds the FIFO wait queue behind the active run. 0 means unbounded.
	MaxQueue int `yaml:"max_queue"`

	// HistorySize is how many finished runs are kept in memory for inspection.
	HistorySize int `yaml:"history_size"`
}

// SchedulerConfig contains schedule engine settings.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Sequence deletion policies.
const (
	DeletePolicyReject  = "reject"
	DeletePolicyCascade = "cascade"
)

// SequencesConfig contains sequence store settings.
type SequencesConfig struct {
	// DeletePolicy decides what happens when a sequence referenced by schedules
	// is deleted: "reject" refuses, "cascade" deactivates the schedules first.
	DeletePolicy string `yaml:"delete_policy"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
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

// APITimeoutConfig contains HTTP timeout settings.
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ROBOTD_SECTION_KEY
// For example: ROBOTD_DATABASE_PATH, ROBOTD_DISPATCHER_MODE
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Robot Sequencer",
			Timezone: "UTC",
		},
		Robot: RobotConfig{
			ID: "robot-01",
		},
		Database: DatabaseConfig{
			Path:        "./data/robotd.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "robotd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Dispatcher: DispatcherConfig{
			Mode:       DispatcherModeMQTT,
			AckTimeout: 10,
		},
		Executor: ExecutorConfig{
			MaxQueue:    0,
			HistorySize: 100,
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
		},
		Sequences: SequencesConfig{
			DeletePolicy: DeletePolicyReject,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
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
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROBOTD_SITE_TIMEZONE"); v != "" {
		cfg.Site.Timezone = v
	}
	if v := os.Getenv("ROBOTD_ROBOT_ID"); v != "" {
		cfg.Robot.ID = v
	}

	// Database
	if v := os.Getenv("ROBOTD_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("ROBOTD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ROBOTD_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("ROBOTD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ROBOTD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("ROBOTD_DISPATCHER_MODE"); v != "" {
		cfg.Dispatcher.Mode = v
	}
	if v := os.Getenv("ROBOTD_SEQUENCES_DELETE_POLICY"); v != "" {
		cfg.Sequences.DeletePolicy = v
	}

	// API
	if v := os.Getenv("ROBOTD_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("ROBOTD_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("ROBOTD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a valid IANA zone", c.Site.Timezone))
	}
	if c.Robot.ID == "" {
		errs = append(errs, "robot.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	switch c.Dispatcher.Mode {
	case DispatcherModeMQTT, DispatcherModeSimulated:
	default:
		errs = append(errs, "dispatcher.mode must be mqtt or simulated")
	}
	if c.Dispatcher.AckTimeout < 1 {
		errs = append(errs, "dispatcher.ack_timeout must be at least 1 second")
	}
	if c.Dispatcher.SimulatedLatencyMS < 0 {
		errs = append(errs, "dispatcher.simulated_latency_ms cannot be negative")
	}

	if c.Executor.MaxQueue < 0 {
		errs = append(errs, "executor.max_queue cannot be negative (0 = unbounded)")
	}
	if c.Executor.HistorySize < 0 {
		errs = append(errs, "executor.history_size cannot be negative")
	}

	switch c.Sequences.DeletePolicy {
	case DeletePolicyReject, DeletePolicyCascade:
	default:
		errs = append(errs, "sequences.delete_policy must be reject or cascade")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location returns the site timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetAckTimeout returns the dispatcher ack timeout as a Duration.
func (c *Config) GetAckTimeout() time.Duration {
	return time.Duration(c.Dispatcher.AckTimeout) * time.Second
}

// GetSimulatedLatency returns the simulated dispatcher latency as a Duration.
func (c *Config) GetSimulatedLatency() time.Duration {
	return time.Duration(c.Dispatcher.SimulatedLatencyMS) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
