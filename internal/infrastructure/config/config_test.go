package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: "test-site"
  timezone: "Europe/London"
robot:
  id: "rover-7"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
dispatcher:
  mode: "simulated"
  ack_timeout: 3
executor:
  max_queue: 8
sequences:
  delete_policy: "cascade"
api:
  host: "0.0.0.0"
  port: 8080
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Robot.ID != "rover-7" {
		t.Errorf("Robot.ID = %q, want %q", cfg.Robot.ID, "rover-7")
	}
	if cfg.Dispatcher.Mode != DispatcherModeSimulated {
		t.Errorf("Dispatcher.Mode = %q, want %q", cfg.Dispatcher.Mode, DispatcherModeSimulated)
	}
	if cfg.GetAckTimeout() != 3*time.Second {
		t.Errorf("GetAckTimeout() = %v, want 3s", cfg.GetAckTimeout())
	}
	if cfg.Executor.MaxQueue != 8 {
		t.Errorf("Executor.MaxQueue = %d, want 8", cfg.Executor.MaxQueue)
	}
	if cfg.Sequences.DeletePolicy != DeletePolicyCascade {
		t.Errorf("Sequences.DeletePolicy = %q, want %q", cfg.Sequences.DeletePolicy, DeletePolicyCascade)
	}
	if cfg.Location().String() != "Europe/London" {
		t.Errorf("Location() = %q, want Europe/London", cfg.Location())
	}
	// Untouched sections keep defaults
	if cfg.Executor.HistorySize != 100 {
		t.Errorf("Executor.HistorySize = %d, want default 100", cfg.Executor.HistorySize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: ""
database:
  path: "/tmp/test.db"
api:
  port: 8080
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: "test-site"
database:
  path: "/tmp/file.db"
`)

	t.Setenv("ROBOTD_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("ROBOTD_DISPATCHER_MODE", "simulated")
	t.Setenv("ROBOTD_API_PORT", "9090")
	t.Setenv("ROBOTD_ROBOT_ID", "env-robot")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Dispatcher.Mode != DispatcherModeSimulated {
		t.Errorf("Dispatcher.Mode = %q, want env override", cfg.Dispatcher.Mode)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Robot.ID != "env-robot" {
		t.Errorf("Robot.ID = %q, want env-robot", cfg.Robot.ID)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "missing site id", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: "site.id"},
		{name: "bad timezone", mutate: func(c *Config) { c.Site.Timezone = "Mars/Olympus" }, wantErr: "site.timezone"},
		{name: "missing robot id", mutate: func(c *Config) { c.Robot.ID = "" }, wantErr: "robot.id"},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{name: "qos too high", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
		{name: "unknown dispatcher mode", mutate: func(c *Config) { c.Dispatcher.Mode = "serial" }, wantErr: "dispatcher.mode"},
		{name: "zero ack timeout", mutate: func(c *Config) { c.Dispatcher.AckTimeout = 0 }, wantErr: "dispatcher.ack_timeout"},
		{name: "negative queue", mutate: func(c *Config) { c.Executor.MaxQueue = -1 }, wantErr: "executor.max_queue"},
		{name: "unknown delete policy", mutate: func(c *Config) { c.Sequences.DeletePolicy = "ignore" }, wantErr: "sequences.delete_policy"},
		{name: "port out of range", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: "api.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Timeouts(t *testing.T) {
	cfg := defaultConfig()

	if cfg.GetReadTimeout() != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 30s", cfg.GetReadTimeout())
	}
	if cfg.GetWriteTimeout() != 30*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 30s", cfg.GetWriteTimeout())
	}
	if cfg.GetIdleTimeout() != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 60s", cfg.GetIdleTimeout())
	}

	cfg.Dispatcher.SimulatedLatencyMS = 250
	if cfg.GetSimulatedLatency() != 250*time.Millisecond {
		t.Errorf("GetSimulatedLatency() = %v, want 250ms", cfg.GetSimulatedLatency())
	}
}
