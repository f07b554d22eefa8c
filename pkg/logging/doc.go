// Package logging provides structured, subsystem-tagged logging for canopy.
//
// The package is a thin layer over Go's standard slog package. Every log call
// names the subsystem that produced it (for example "Orchestrator", "TreeCache",
// "Config", "MCPServer") so that output can be filtered without configuring
// per-package loggers.
//
// Initialize once at startup:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
// then log from anywhere:
//
//	logging.Info("Orchestrator", "registered provider %s", id)
//	logging.Error("TreeCache", err, "failed to invalidate subtree %s", nodeID)
//
// Level filtering happens at the handler, so calls below the configured level
// cost a single enabled-check.
package logging
