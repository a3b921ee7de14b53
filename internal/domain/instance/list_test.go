package instance_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/instance"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/testutil"
)

func newList(t *testing.T, root string) (*instance.List, *testutil.EventRecorder) {
	t.Helper()
	list := instance.NewList(root, instance.NewScanner(testutil.DirNameLoader(), nil), nil)
	events := &testutil.EventRecorder{}
	list.Subscribe(events.Observe)
	return list, events
}

func TestLoadAll(t *testing.T) {
	root := t.TempDir()
	testutil.WriteInstance(t, root, "charlie", nil)
	testutil.WriteInstance(t, root, "alpha", nil)
	testutil.WriteInstance(t, root, "bravo", nil)
	testutil.WriteDir(t, root, "junk")
	testutil.WriteGroupFile(t, root, map[string][]string{
		"Modded":  {"alpha", "ghost"},
		"Vanilla": {"charlie"},
	})

	list, events := newList(t, root)
	report := list.LoadAll(context.Background())

	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, testutil.IDs(list.Snapshot()))
	assert.Equal(t, 3, report.Loaded)
	assert.Equal(t, 2, report.Unmarked) // junk and the group file
	assert.Equal(t, 2, report.Grouped)
	assert.Equal(t, list.Generation(), report.Generation)
	assert.Empty(t, report.RootError)

	alpha, _ := list.GetByID("alpha")
	bravo, _ := list.GetByID("bravo")
	charlie, _ := list.GetByID("charlie")
	assert.Equal(t, "Modded", alpha.Group())
	assert.Equal(t, "", bravo.Group())
	assert.Equal(t, "Vanilla", charlie.Group())

	require.Len(t, events.Events(), 1)
	assert.Equal(t, instance.Event{Kind: instance.EventReset, Index: -1, Generation: report.Generation}, events.Events()[0])
}

func TestLoadAllEmptyRootStillResets(t *testing.T) {
	list, events := newList(t, t.TempDir())

	report := list.LoadAll(context.Background())

	assert.Zero(t, report.Loaded)
	assert.Zero(t, list.Len())
	assert.Equal(t, []instance.EventKind{instance.EventReset}, events.Kinds())
}

func TestLoadAllMissingRoot(t *testing.T) {
	logger, logs := observedLogger()
	root := filepath.Join(t.TempDir(), "missing")
	list := instance.NewList(root, instance.NewScanner(testutil.DirNameLoader(), logger), logger)
	events := &testutil.EventRecorder{}
	list.Subscribe(events.Observe)

	report := list.LoadAll(context.Background())

	assert.Zero(t, list.Len())
	assert.NotEmpty(t, report.RootError)
	assert.Equal(t, []instance.EventKind{instance.EventReset}, events.Kinds())
	assert.Equal(t, 1, logs.FilterMessage("Instance root not found").FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestLoadAllToleratesLoaderFailures(t *testing.T) {
	root := t.TempDir()
	goodDir := testutil.WriteInstance(t, root, "good", nil)
	badDir := testutil.WriteInstance(t, root, "bad", nil)

	loader := testutil.NewMockLoader(t)
	loader.ExpectLoaded(goodDir)
	loader.On("Load", mock.Anything, badDir).Return(instance.Loaded(nil)).Once()

	list := instance.NewList(root, instance.NewScanner(loader, nil), nil)
	report := list.LoadAll(context.Background())

	assert.Equal(t, []string{"good"}, testutil.IDs(list.Snapshot()))
	assert.Equal(t, 1, report.Failed)
}

func TestLoadAllReplacesPreviousContents(t *testing.T) {
	root := t.TempDir()
	testutil.WriteInstance(t, root, "a", nil)

	list, events := newList(t, root)
	list.LoadAll(context.Background())
	first := list.Generation()
	old, ok := list.GetByID("a")
	require.True(t, ok)

	testutil.WriteInstance(t, root, "b", nil)
	list.LoadAll(context.Background())

	assert.NotEqual(t, first, list.Generation())
	assert.Equal(t, []string{"a", "b"}, testutil.IDs(list.Snapshot()))

	current, _ := list.GetByID("a")
	assert.NotSame(t, old, current)

	// The previous generation's instance is detached
	events.Reset()
	old.SetName("stale")
	assert.Empty(t, events.Events())
}

func TestAdd(t *testing.T) {
	list, events := newList(t, t.TempDir())

	a := types.NewInstance("a", "/a", types.InstanceMeta{})
	b := types.NewInstance("b", "/b", types.InstanceMeta{})

	assert.Equal(t, 0, list.Add(a))
	assert.Equal(t, 1, list.Add(b))
	assert.Equal(t, -1, list.Add(nil))

	assert.Equal(t, 2, list.Len())
	got := events.Events()
	require.Len(t, got, 2)
	assert.Equal(t, instance.EventItemAdded, got[0].Kind)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, instance.EventItemAdded, got[1].Kind)
	assert.Equal(t, 1, got[1].Index)
}

func TestClear(t *testing.T) {
	root := t.TempDir()
	testutil.WriteInstance(t, root, "a", nil)

	list, events := newList(t, root)
	list.LoadAll(context.Background())
	before := list.Generation()
	inst, _ := list.GetByID("a")

	list.Clear()

	assert.Zero(t, list.Len())
	assert.NotEqual(t, before, list.Generation())
	assert.Equal(t, []instance.EventKind{instance.EventReset, instance.EventReset}, events.Kinds())

	// Changes to a removed instance are dropped
	inst.SetGroup("late")
	assert.Len(t, events.Events(), 2)
}

func TestGetByID(t *testing.T) {
	list, _ := newList(t, t.TempDir())
	first := types.NewInstance("dup", "/one", types.InstanceMeta{})
	second := types.NewInstance("dup", "/two", types.InstanceMeta{})
	list.Add(first)
	list.Add(second)

	got, ok := list.GetByID("dup")
	require.True(t, ok)
	assert.Same(t, first, got)

	got, ok = list.GetByID("nope")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestPropertyChangesEmitItemChanged(t *testing.T) {
	root := t.TempDir()
	testutil.WriteInstance(t, root, "a", nil)
	testutil.WriteInstance(t, root, "b", nil)

	list, events := newList(t, root)
	list.LoadAll(context.Background())
	events.Reset()

	b, _ := list.GetByID("b")
	b.SetGroup("G")
	b.SetGroup("G")
	b.SetName("Bee")

	got := events.Events()
	require.Len(t, got, 2)
	for _, ev := range got {
		assert.Equal(t, instance.EventItemChanged, ev.Kind)
		assert.Equal(t, 1, ev.Index)
		assert.Equal(t, list.Generation(), ev.Generation)
	}
}

func TestAddedInstanceEmitsItemChanged(t *testing.T) {
	list, events := newList(t, t.TempDir())
	inst := types.NewInstance("a", "/a", types.InstanceMeta{})
	list.Add(inst)

	inst.SetNotes("hi")

	assert.Equal(t, []instance.EventKind{instance.EventItemAdded, instance.EventItemChanged}, events.Kinds())
}

func TestInstanceAddedTwiceEmitsOneItemChanged(t *testing.T) {
	list, events := newList(t, t.TempDir())
	inst := types.NewInstance("a", "/a", types.InstanceMeta{})
	assert.Equal(t, 0, list.Add(inst))
	assert.Equal(t, 1, list.Add(inst))
	events.Reset()

	inst.SetName("renamed")

	require.Len(t, events.Events(), 1)
	assert.Equal(t, instance.EventItemChanged, events.Events()[0].Kind)
	assert.Equal(t, 0, events.Events()[0].Index)
	assert.Equal(t, 2, list.Len())
}

func TestCurrentPairsGenerationWithItems(t *testing.T) {
	root := t.TempDir()
	testutil.WriteInstance(t, root, "alpha", nil)
	list, _ := newList(t, root)
	report := list.LoadAll(context.Background())

	generation, instances := list.Current()
	assert.Equal(t, report.Generation, generation)
	assert.Equal(t, []string{"alpha"}, testutil.IDs(instances))

	// The returned slice is a copy
	instances[0] = nil
	_, again := list.Current()
	assert.NotNil(t, again[0])

	list.Clear()
	generation, instances = list.Current()
	assert.NotEqual(t, report.Generation, generation)
	assert.Empty(t, instances)
}

func TestNotifyPropertiesChangedForUnknownInstanceIsDropped(t *testing.T) {
	list, events := newList(t, t.TempDir())

	list.NotifyPropertiesChanged(types.NewInstance("x", "/x", types.InstanceMeta{}))

	assert.Empty(t, events.Events())
}

func TestSubscribeOrderAndUnsubscribe(t *testing.T) {
	list := instance.NewList(t.TempDir(), instance.NewScanner(testutil.DirNameLoader(), nil), nil)

	var order []string
	unsubA := list.Subscribe(func(instance.Event) { order = append(order, "a") })
	list.Subscribe(func(instance.Event) { order = append(order, "b") })
	assert.Equal(t, 2, list.Subscribers())

	list.Clear()
	unsubA()
	unsubA()
	list.Clear()

	assert.Equal(t, []string{"a", "b", "b"}, order)
	assert.Equal(t, 1, list.Subscribers())
}

func TestAdopt(t *testing.T) {
	root := t.TempDir()
	testutil.WriteInstance(t, root, "a", nil)
	testutil.WriteDir(t, root, "plain")
	testutil.WriteGroupFile(t, root, map[string][]string{"G": {"late"}})

	list, events := newList(t, root)
	list.LoadAll(context.Background())
	events.Reset()

	testutil.WriteInstance(t, root, "late", nil)
	inst, index, err := list.Adopt(context.Background(), "late")
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	assert.Equal(t, "G", inst.Group())
	assert.Equal(t, []instance.EventKind{instance.EventItemAdded}, events.Kinds())

	_, _, err = list.Adopt(context.Background(), "late")
	assert.ErrorIs(t, err, instance.ErrDuplicate)

	_, _, err = list.Adopt(context.Background(), "plain")
	assert.ErrorIs(t, err, instance.ErrNotAnInstance)

	_, _, err = list.Adopt(context.Background(), "../escape")
	assert.ErrorIs(t, err, instance.ErrInvalidName)

	assert.Equal(t, 2, list.Len())
}

type countingRecorder struct {
	mu         sync.Mutex
	candidates map[instance.Outcome]int
	loads      int
	events     map[instance.EventKind]int
	instances  int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		candidates: make(map[instance.Outcome]int),
		events:     make(map[instance.EventKind]int),
	}
}

func (r *countingRecorder) RecordCandidate(o instance.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[o]++
}

func (r *countingRecorder) RecordLoad(instance.LoadReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
}

func (r *countingRecorder) RecordEvent(k instance.EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[k]++
}

func (r *countingRecorder) SetInstances(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = n
}

func TestRecorder(t *testing.T) {
	root := t.TempDir()
	testutil.WriteInstance(t, root, "a", nil)
	testutil.WriteInstance(t, root, "b", nil)

	rec := newCountingRecorder()
	list := instance.NewList(root, instance.NewScanner(testutil.DirNameLoader(), nil), nil).WithRecorder(rec)

	list.LoadAll(context.Background())
	list.Add(types.NewInstance("c", "/c", types.InstanceMeta{}))

	assert.Equal(t, 2, rec.candidates[instance.OutcomeOK])
	assert.Equal(t, 1, rec.loads)
	assert.Equal(t, 1, rec.events[instance.EventReset])
	assert.Equal(t, 1, rec.events[instance.EventItemAdded])
	assert.Equal(t, 3, rec.instances)
}

func TestReadersNeverSeePartialLoads(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		testutil.WriteInstance(t, root, name, nil)
	}

	list, _ := newList(t, root)
	list.LoadAll(context.Background())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				assert.Len(t, list.Snapshot(), 4)
			}
		}
	}()

	for i := 0; i < 20; i++ {
		list.LoadAll(context.Background())
	}
	close(stop)
	wg.Wait()
}
