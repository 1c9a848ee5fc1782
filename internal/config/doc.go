// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/layerbuild/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/layerbuild/config.cue on macOS, %APPDATA%\layerbuild\config.cue
// on Windows), falling back to a project-local .layerbuild.cue. LAYERBUILD_* environment
// variables override file values; for nested keys the dot becomes an underscore
// (LAYERBUILD_WATCH_DEBOUNCE).
//
// Configuration files are validated against an embedded CUE schema (config_schema.cue).
package config
