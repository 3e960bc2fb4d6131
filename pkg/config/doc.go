// Package config defines the Keel configuration model and loading.
//
// Configuration is read from a YAML file, defaults are applied for any
// omitted field, KEEL_* environment variables override file values, and
// the final result is validated before use.
package config
