// Package config loads host settings from defaults, an optional YAML
// config file, and SEMDEX_* environment variables.
package config
