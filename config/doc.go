// Package config loads the chatquery configuration from a TOML or YAML
// file, applies defaults and validates it.
//
// The file format follows the extension: .toml, or .yaml/.yml. String
// values of the store DSN and the cache path may reference environment
// variables as ${VAR}; a missing variable is an error.
package config
