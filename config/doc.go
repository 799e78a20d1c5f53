// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the server, logging, rate limiting,
// classifier, relay, metrics and endpoint profile settings, and validates
// them before anything is built from them.
package config
