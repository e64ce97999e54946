// Package logging provides subsystem-tagged structured logging for kubeship.
//
// The package wraps Go's slog with a text handler and a small set of
// printf-style helpers. Every entry carries a subsystem attribute so that
// output from concurrent reconcile workers can be filtered by component.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Reconciler", "Starting %d jobs using %d workers", n, workers)
//	logging.Warn("Reconciler", "'%s' missing version for %s", svc, region)
//	logging.Error("Upgrade", err, "Apply failed for %s", svc)
//
// # Subsystems
//
//   - Config: global configuration loading and validation
//   - Resolver: manifest resolution and file-backed loading
//   - Reconciler: batch orchestration and aggregation
//   - Upgrade: per-service state machine
//   - Cluster: Kubernetes API interactions
//   - Events: audit and Kubernetes event notifications
//   - Watcher: manifest file watching
//   - CLI: command handling
//
// # controller-runtime
//
// InitForCLI also installs a logr bridge over the same slog handler with
// ctrl.SetLogger, so client-go and controller-runtime messages share the
// configured level and writer.
package logging
