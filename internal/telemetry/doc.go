// Package telemetry defines the observability event emitted for every
// index build attempt and a log-backed recorder for it.
package telemetry
