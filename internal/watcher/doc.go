// Package watcher turns filesystem change bursts in the workspace into
// single debounced re-index triggers.
package watcher
