package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInstanceDefaults(t *testing.T) {
	inst := NewInstance("alpha", "/tmp/alpha", InstanceMeta{})

	assert.Equal(t, "alpha", inst.ID())
	assert.Equal(t, "alpha", inst.Name())
	assert.Equal(t, "", inst.Group())
	assert.Equal(t, TypeLegacy, inst.Type())
	assert.Equal(t, DefaultIconKey, inst.IconKey())
	assert.Equal(t, "/tmp/alpha", inst.Dir())
}

func TestSettersNotifyOnChange(t *testing.T) {
	inst := NewInstance("alpha", "/tmp/alpha", InstanceMeta{Name: "Alpha"})

	var calls int
	cancel := inst.OnPropertiesChanged(func(i *Instance) {
		assert.Same(t, inst, i)
		calls++
	})

	inst.SetGroup("Modded")
	inst.SetGroup("Modded") // unchanged
	inst.SetName("Alpha 2")
	assert.Equal(t, 2, calls)

	cancel()
	cancel()
	inst.SetNotes("hello")
	assert.Equal(t, 2, calls)
	assert.Equal(t, "hello", inst.Notes())
}

func TestListenerMayReadInstance(t *testing.T) {
	inst := NewInstance("alpha", "/tmp/alpha", InstanceMeta{})

	var seen string
	inst.OnPropertiesChanged(func(i *Instance) {
		seen = i.Group()
	})
	inst.SetGroup("g")
	assert.Equal(t, "g", seen)
}

func TestViews(t *testing.T) {
	a := NewInstance("a", "/a", InstanceMeta{Name: "A", Type: TypeOneSix, Notes: "n"})
	b := NewInstance("b", "/b", InstanceMeta{})
	b.SetGroup("G")

	views := Views([]*Instance{a, b})
	assert.Equal(t, []InstanceView{
		{ID: "a", Name: "A", Type: TypeOneSix, Dir: "/a", IconKey: DefaultIconKey, Notes: "n"},
		{ID: "b", Name: "b", Group: "G", Type: TypeLegacy, Dir: "/b", IconKey: DefaultIconKey},
	}, views)
}
