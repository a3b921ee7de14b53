// Package eventbus publishes instance list changes to Redis pub/sub.
//
// Each list event is encoded as a JSON EventMessage and published to the
// configured channel, so other processes can follow the instance list
// without polling the HTTP API.
//
// Example Usage:
//
//	bus, err := eventbus.Dial(ctx, "redis://localhost:6379/0", "prisonlauncher:instances", logger)
//	if err != nil { ... }
//	defer bus.Close()
//	detach := bus.Attach(list)
//	defer detach()
package eventbus
