// Package config handles loading and validating robotd configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (ROBOTD_SECTION_KEY)
//   - Validation of required fields and enumerated choices
//   - Default value handling
//
// Sensitive values (MQTT password, InfluxDB token) should be set via
// environment variables rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	loc := cfg.Location() // schedule evaluation timezone
package config
