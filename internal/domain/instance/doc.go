// Package instance discovers instance directories and keeps them in an
// observable list.
//
// A load pass works in three steps:
//   - ParseGroupFile reads the optional group assignments (instgroups.json)
//   - Scanner walks the immediate children of the root, keeps those holding
//     the marker file (instance.cfg) and hands each one to a Loader
//   - List adopts the loaded instances in scan order, applies their groups
//     and emits a single EventReset
//
// Loaders report a tagged LoadResult: Loaded, NotAnInstance or Failed.
// Nothing short of an unreadable root aborts a scan; everything else is
// logged and skipped.
//
// Example Usage:
//
//	scanner := instance.NewScanner(loader, logger)
//	list := instance.NewList("instances", scanner, logger)
//	unsubscribe := list.Subscribe(func(ev instance.Event) { ... })
//	defer unsubscribe()
//	report := list.LoadAll(ctx)
package instance
