// Package config resolves sjconv's settings from defaults, an optional YAML
// file and command-line flags, in that order of precedence.
package config
