// Package logger provides structured logging for hollowfoot using zerolog.
//
// It supports JSON and console output, level configuration, component-scoped
// loggers and trace correlation with the active OpenTelemetry span.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("workflow")
//	log.Debug("step evaluated", logger.Fields("step", "merge()", "index", 1))
package logger
