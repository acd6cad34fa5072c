// Package monitor polls the index server's resource usage on a fixed
// interval while the index is live. Samples are logged, not persisted;
// the latest one is kept for build telemetry snapshots.
package monitor
