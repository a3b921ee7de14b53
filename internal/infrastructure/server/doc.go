// Package server wires configuration, the instance list and the HTTP API
// into a runnable launcher backend.
//
// Startup order:
//  1. metrics and tracing
//  2. loader, scanner and instance list
//  3. websocket hub and the optional Redis event bus
//  4. initial LoadAll
//  5. optional filesystem watcher
//  6. router with middleware and routes
//
// Close shuts the HTTP server down, disconnects stream clients and stops
// the watcher and event bus.
package server
