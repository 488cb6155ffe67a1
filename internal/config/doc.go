// Package config loads the confstore service settings from multiple sources
// (YAML file, environment variables, CLI flags) with precedence: CLI flags >
// YAML config > Environment variables > Defaults. It also translates those
// settings into options for the configuration store.
package config
