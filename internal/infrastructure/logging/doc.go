// Package logging provides structured logging for robotd.
//
// It wraps log/slog so every component logs with the same default
// fields (service, version) and level filtering.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	exec := execution.New(store, execution.WithLogger(logger.Component("executor")))
//
// Never log secrets such as the MQTT password or InfluxDB token.
package logging
