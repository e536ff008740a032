// Package config loads, validates, and normalizes reelcut configuration
// from TOML, providing repository defaults for every field.
package config
