// Package config loads, normalizes, and validates followup configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ANTHROPIC_API_KEY and FOLLOWUP_OWNER_EMAIL. The Config value is passed
// explicitly into every component constructor; nothing in the pipeline reads
// process-wide settings on its own.
package config
