// Package config loads, normalizes, and validates coursegen configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// COURSEGEN_SPEECH_API_KEY. The Config type centralizes every knob the CLI and
// the generation pipeline need, so output directories, backend credentials and
// worker limits are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical policy names, and clear validation errors.
package config
