// Package config loads, normalizes, and validates Shamal configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHAMAL_ANIDB_CLIENT. The Config type centralizes every knob the CLI and the
// AniDB provider need: cache location, request cadence, freshness window, and
// title localisation preferences.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
