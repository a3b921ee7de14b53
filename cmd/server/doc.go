// Package main is the entry point for the PrisonLauncher instance server.
//
// The server scans an instance root, keeps the ordered instance list in
// memory and serves it over HTTP, with change events streamed over a
// websocket and optionally published to Redis.
//
// Configuration:
//   - Defaults
//   - TOML file ($XDG_CONFIG_HOME/prisonlauncher/launcher.toml or --config)
//   - Environment variables (12-factor)
//   - CLI flags (override everything)
//
// Usage:
//
//	# Serve ./instances on the default port
//	./server
//
//	# Custom root, reload on changes, development logging
//	./server --dir ~/.local/share/multimc/instances --watch --dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
