// Package config loads, validates, and normalizes the TOML configuration
// shared by the reel CLI and daemon.
//
// Load resolves the config path (explicit flag, ~/.config/reel/config.toml,
// or a project-local reel.toml), merges file values over Default(), expands
// ~ in every path field, and validates section by section. CreateSample
// writes the embedded, commented sample so `reel config init` and new
// installs start from a working file.
package config
