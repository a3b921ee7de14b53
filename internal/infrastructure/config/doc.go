// Package config provides 12-factor configuration management for the launcher backend.
//
// Configuration is layered: built-in defaults, then an optional TOML file
// ($XDG_CONFIG_HOME/prisonlauncher/launcher.toml unless a path is given),
// then environment variables. CLI flags can override the result.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Instances: instance root, group file, marker, ignore globs, known types
//   - Watch: reload on filesystem changes
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Redis: optional event publishing
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Serving %s on %s:%s\n", cfg.Instances.Dir, cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - INSTANCES_DIR, INSTANCES_GROUP_FILE, INSTANCES_MARKER, INSTANCES_IGNORE, INSTANCES_KNOWN_TYPES
//   - WATCH_ENABLED, WATCH_DEBOUNCE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - REDIS_URL, REDIS_CHANNEL
package config
