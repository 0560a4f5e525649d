// Package config loads, normalizes, and validates ccanvas client configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment overrides such as
// CCANVAS_REQUEST_SOCKET. ClientConfig converts the result into the settings
// the client package consumes.
//
// Always obtain settings through this package so the CLI and tests see the
// same sanitized socket paths and clear validation errors.
package config
