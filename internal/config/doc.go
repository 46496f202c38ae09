// Package config loads, validates, and defaults cloudtile's TOML
// configuration.
package config
