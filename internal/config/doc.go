// Package config provides configuration loading for mathboard.
//
// Configuration is assembled from layers, each overriding the previous one:
//
//  1. Built-in defaults (Default)
//  2. A configuration file, TOML (.toml) or YAML (.yaml, .yml)
//  3. Environment variables prefixed with MATHBOARD_
//  4. Command-line flags, applied by the caller
//
// # File format
//
//	[history]
//	max_entries = 10
//
//	[storage]
//	backend = "file"      # memory, file or sqlite
//	path = "~/.local/share/mathboard"
//	key = "mathboard.state"
//	timeout = "5s"
//	max_import_size = 10485760
//
//	[export]
//	indent = "  "
//
//	[logging]
//	level = "info"        # debug, info, warn, error
//	format = "text"       # text or json
//
// # Environment
//
// Every setting has an environment variable named after its section and
// key, for example MATHBOARD_HISTORY_MAX_ENTRIES or MATHBOARD_STORAGE_BACKEND.
//
// # Watching
//
// Watcher reloads the file when it changes on disk and delivers each
// successfully validated configuration on a channel.
package config
