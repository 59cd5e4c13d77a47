// Package config defines flow-monitor settings and provides helpers to load,
// validate and save them in YAML format.
//
// Validate fills defaults, so a loaded Config is always ready to use.
package config
