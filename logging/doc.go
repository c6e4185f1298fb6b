// Package logging provides a minimal logging interface and adapters for AgentGuard.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the monitor, registry and bus use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	mon := monitor.New(scorer.NewHeuristicScorer(), monitor.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
