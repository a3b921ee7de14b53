package types

import (
	"sync"
)

// Instance types understood by the default loader
const (
	TypeLegacy    = "Legacy"
	TypeOneSix    = "OneSix"
	TypeNostalgia = "Nostalgia"
)

// DefaultIconKey is used when an instance does not name an icon
const DefaultIconKey = "default"

// InstanceMeta carries the loader-provided fields of a new instance
type InstanceMeta struct {
	Name    string
	Type    string
	IconKey string
	Notes   string
}

// PropertiesListener is notified after a property of an instance changed
type PropertiesListener func(inst *Instance)

// Instance is a single loaded instance profile.
// Identity (ID, Dir, Type) is fixed at construction; display properties are
// mutable through setters.
type Instance struct {
	id       string
	dir      string
	instType string

	mu        sync.RWMutex
	name      string // Protected by mu
	group     string // Protected by mu
	iconKey   string // Protected by mu
	notes     string // Protected by mu
	listeners map[uint64]PropertiesListener
	nextID    uint64
}

// NewInstance creates an instance rooted at dir
func NewInstance(id, dir string, meta InstanceMeta) *Instance {
	name := meta.Name
	if name == "" {
		name = id
	}
	iconKey := meta.IconKey
	if iconKey == "" {
		iconKey = DefaultIconKey
	}
	instType := meta.Type
	if instType == "" {
		instType = TypeLegacy
	}

	return &Instance{
		id:        id,
		dir:       dir,
		instType:  instType,
		name:      name,
		iconKey:   iconKey,
		notes:     meta.Notes,
		listeners: make(map[uint64]PropertiesListener),
	}
}

// ID returns the stable instance identifier
func (i *Instance) ID() string { return i.id }

// Dir returns the instance's source directory
func (i *Instance) Dir() string { return i.dir }

// Type returns the instance type
func (i *Instance) Type() string { return i.instType }

// Name returns the display name
func (i *Instance) Name() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.name
}

// Group returns the group name, empty when ungrouped
func (i *Instance) Group() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.group
}

// IconKey returns the icon key
func (i *Instance) IconKey() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.iconKey
}

// Notes returns the user notes
func (i *Instance) Notes() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.notes
}

// SetName changes the display name
func (i *Instance) SetName(name string) {
	i.set(&i.name, name)
}

// SetGroup changes the group. An empty group means ungrouped.
func (i *Instance) SetGroup(group string) {
	i.set(&i.group, group)
}

// SetIconKey changes the icon key
func (i *Instance) SetIconKey(key string) {
	i.set(&i.iconKey, key)
}

// SetNotes changes the user notes
func (i *Instance) SetNotes(notes string) {
	i.set(&i.notes, notes)
}

// set stores value in field and notifies listeners when it changed.
// Listeners run after the lock is released.
func (i *Instance) set(field *string, value string) {
	i.mu.Lock()
	if *field == value {
		i.mu.Unlock()
		return
	}
	*field = value
	listeners := make([]PropertiesListener, 0, len(i.listeners))
	for _, fn := range i.listeners {
		listeners = append(listeners, fn)
	}
	i.mu.Unlock()

	for _, fn := range listeners {
		fn(i)
	}
}

// OnPropertiesChanged registers fn and returns a function that removes it
func (i *Instance) OnPropertiesChanged(fn PropertiesListener) (cancel func()) {
	i.mu.Lock()
	key := i.nextID
	i.nextID++
	i.listeners[key] = fn
	i.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			i.mu.Lock()
			delete(i.listeners, key)
			i.mu.Unlock()
		})
	}
}

// View returns a consistent copy of the instance's fields
func (i *Instance) View() InstanceView {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return InstanceView{
		ID:      i.id,
		Name:    i.name,
		Group:   i.group,
		Type:    i.instType,
		Dir:     i.dir,
		IconKey: i.iconKey,
		Notes:   i.notes,
	}
}

// InstanceView is a read-only snapshot of an instance
type InstanceView struct {
	ID      string `json:"id" yaml:"id" toml:"id"`
	Name    string `json:"name" yaml:"name" toml:"name"`
	Group   string `json:"group" yaml:"group" toml:"group"`
	Type    string `json:"type" yaml:"type" toml:"type"`
	Dir     string `json:"dir" yaml:"dir" toml:"dir"`
	IconKey string `json:"icon_key" yaml:"icon_key" toml:"icon_key"`
	Notes   string `json:"notes,omitempty" yaml:"notes,omitempty" toml:"notes,omitempty"`
}

// Views converts instances to views, preserving order
func Views(instances []*Instance) []InstanceView {
	views := make([]InstanceView, len(instances))
	for idx, inst := range instances {
		views[idx] = inst.View()
	}
	return views
}
