// Package collector enumerates candidate workspace files for indexing.
// The walk is read-only, skips hidden and dependency directories, and
// stops adding a file when it would push the cumulative size past the
// configured budget.
package collector
