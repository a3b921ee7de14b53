// Package types provides shared data structures for the launcher backend.
//
// Core Types:
//   - Instance: a loaded instance profile, owned by the instance list
//   - InstanceMeta: loader-provided metadata used to build an Instance
//   - InstanceView: an immutable copy of an Instance for serialization
//   - EventMessage: the wire form of a list change for streams and the event bus
//
// Instances are mutated only through their setters. Each setter that changes
// a value notifies the listeners registered with OnPropertiesChanged, which is
// how the instance list learns about per-item changes.
//
// Example Usage:
//
//	inst := types.NewInstance("survival", "/srv/instances/survival", types.InstanceMeta{
//	    Name: "Survival",
//	    Type: types.TypeOneSix,
//	})
//	cancel := inst.OnPropertiesChanged(func(i *types.Instance) { ... })
//	defer cancel()
//	inst.SetGroup("Vanilla")
package types
