// Package config loads, normalizes, and validates polyemesis configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// POLYEMESIS_PASSWORD. The Config type centralizes every knob the CLI needs:
// the media server endpoint and credentials, local state locations, and log
// output shape.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
