package instance

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/id"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/paths"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

var (
	// ErrDuplicate is returned by Adopt when the id is already listed
	ErrDuplicate = errors.New("instance already listed")

	// ErrInvalidName is returned by Adopt for names that are not a direct child
	ErrInvalidName = errors.New("invalid instance directory name")
)

// Recorder receives list and scan metrics
type Recorder interface {
	RecordCandidate(outcome Outcome)
	RecordLoad(report LoadReport)
	RecordEvent(kind EventKind)
	SetInstances(count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordCandidate(Outcome) {}
func (nopRecorder) RecordLoad(LoadReport)   {}
func (nopRecorder) RecordEvent(EventKind)   {}
func (nopRecorder) SetInstances(int)        {}

// LoadReport summarises one LoadAll pass
type LoadReport struct {
	Generation string        `json:"generation"`
	Loaded     int           `json:"loaded"`
	Unmarked   int           `json:"unmarked"`
	Rejected   int           `json:"rejected"`
	Failed     int           `json:"failed"`
	Grouped    int           `json:"grouped"`
	Duration   time.Duration `json:"duration_ns"`
	RootError  string        `json:"root_error,omitempty"`
}

// List is the ordered, observable collection of loaded instances.
//
// Mutations (LoadAll, Clear, Add, Adopt and property-change delivery) are
// serialized and deliver their events in mutation order. Readers never see a
// partially loaded list. Instances returned by readers are owned by the list
// and stay valid only until the next LoadAll or Clear.
type List struct {
	root      string
	groupFile string
	scanner   *Scanner
	logger    *zap.Logger
	recorder  Recorder

	writeMu sync.Mutex
	detach  []func() // Protected by writeMu

	mu         sync.RWMutex
	items      []*types.Instance // Protected by mu
	generation string            // Protected by mu

	observers observers
}

// NewList creates an empty list for the instances below root
func NewList(root string, scanner *Scanner, logger *zap.Logger) *List {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &List{
		root:       root,
		groupFile:  paths.At(root).GroupFile(),
		scanner:    scanner,
		logger:     logger,
		recorder:   nopRecorder{},
		generation: id.NewGenerationID().String(),
	}
}

// WithGroupFile overrides the group file location
func (l *List) WithGroupFile(path string) *List {
	if path != "" {
		l.groupFile = path
	}
	return l
}

// WithRecorder adds metrics tracking to the list and its scanner
func (l *List) WithRecorder(recorder Recorder) *List {
	if recorder != nil {
		l.recorder = recorder
		l.scanner.WithRecorder(recorder)
	}
	return l
}

// Root returns the instance root directory
func (l *List) Root() string { return l.root }

// GroupFile returns the group file location
func (l *List) GroupFile() string { return l.groupFile }

// LoadAll replaces the contents of the list with a fresh scan of the root
// and emits exactly one EventReset.
func (l *List) LoadAll(ctx context.Context) LoadReport {
	start := time.Now()

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.detachAll()

	groups := ParseGroupFile(l.groupFile, l.logger)

	report := LoadReport{}
	scan, err := l.scanner.Scan(ctx, l.root)
	if err != nil {
		report.RootError = err.Error()
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Instance root not found", zap.String("root", l.root))
		} else {
			l.logger.Error("Failed to scan instance root", zap.String("root", l.root), zap.Error(err))
		}
	}

	for _, inst := range scan.Instances {
		if group, ok := groups[inst.ID()]; ok {
			inst.SetGroup(group)
			report.Grouped++
		}
		l.attach(inst)
	}

	generation := id.NewGenerationID().String()
	l.mu.Lock()
	l.items = scan.Instances
	l.generation = generation
	l.mu.Unlock()

	report.Generation = generation
	report.Loaded = len(scan.Instances)
	report.Unmarked = scan.Unmarked
	report.Rejected = scan.Rejected
	report.Failed = scan.Failed
	report.Duration = time.Since(start)

	l.logger.Info("Instance list loaded",
		zap.String("root", l.root),
		zap.String("generation", generation),
		zap.Int("loaded", report.Loaded),
		zap.Int("rejected", report.Rejected),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)

	l.recorder.RecordLoad(report)
	l.recorder.SetInstances(report.Loaded)
	l.emit(Event{Kind: EventReset, Index: -1, Generation: generation})

	return report
}

// Clear empties the list and emits EventReset
func (l *List) Clear() {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.detachAll()

	generation := id.NewGenerationID().String()
	l.mu.Lock()
	l.items = nil
	l.generation = generation
	l.mu.Unlock()

	l.recorder.SetInstances(0)
	l.emit(Event{Kind: EventReset, Index: -1, Generation: generation})
}

// Add appends inst, emits EventItemAdded and returns its index.
// Adding nil is a no-op returning -1. An instance added more than once is
// listed at each index, and its property changes report the first one.
func (l *List) Add(inst *types.Instance) int {
	if inst == nil {
		l.logger.Error("Refusing to add nil instance")
		return -1
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	return l.addLocked(inst)
}

// Adopt loads the named child of the root and appends it.
// The child's group is taken from the group file.
func (l *List) Adopt(ctx context.Context, name string) (*types.Instance, int, error) {
	if err := paths.ValidateChildName(name); err != nil {
		return nil, -1, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	result := l.scanner.Probe(ctx, l.root, name)
	l.recorder.RecordCandidate(result.Outcome())
	inst, ok := result.Instance()
	if !ok {
		return nil, -1, result.Err()
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if _, exists := l.GetByID(inst.ID()); exists {
		return nil, -1, fmt.Errorf("%w: %s", ErrDuplicate, inst.ID())
	}
	if group, ok := ParseGroupFile(l.groupFile, l.logger)[inst.ID()]; ok {
		inst.SetGroup(group)
	}

	return inst, l.addLocked(inst), nil
}

func (l *List) addLocked(inst *types.Instance) int {
	l.mu.Lock()
	listed := false
	for _, item := range l.items {
		if item == inst {
			listed = true
			break
		}
	}
	l.items = append(l.items, inst)
	index := len(l.items) - 1
	generation := l.generation
	l.mu.Unlock()

	// One subscription per instance, however often it is listed
	if !listed {
		l.attach(inst)
	}
	l.recorder.SetInstances(index + 1)
	l.emit(Event{Kind: EventItemAdded, Index: index, Generation: generation})
	return index
}

// NotifyPropertiesChanged emits EventItemChanged for inst if it is still
// listed. Events for instances no longer in the list are dropped.
func (l *List) NotifyPropertiesChanged(inst *types.Instance) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.RLock()
	index := -1
	for idx, item := range l.items {
		if item == inst {
			index = idx
			break
		}
	}
	generation := l.generation
	l.mu.RUnlock()

	if index < 0 {
		return
	}
	l.emit(Event{Kind: EventItemChanged, Index: index, Generation: generation})
}

// GetByID returns the first instance with the given id
func (l *List) GetByID(instanceID string) (*types.Instance, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, inst := range l.items {
		if inst.ID() == instanceID {
			return inst, true
		}
	}
	return nil, false
}

// At returns the instance at index
func (l *List) At(index int) (*types.Instance, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.items) {
		return nil, false
	}
	return l.items[index], true
}

// Snapshot returns the current instances in order
func (l *List) Snapshot() []*types.Instance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make([]*types.Instance, len(l.items))
	copy(snapshot, l.items)
	return snapshot
}

// Current returns the generation and a snapshot of its instances, read
// together so they always belong to the same load
func (l *List) Current() (string, []*types.Instance) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make([]*types.Instance, len(l.items))
	copy(snapshot, l.items)
	return l.generation, snapshot
}

// Views returns serializable copies of the current instances together with
// the generation they belong to
func (l *List) Views() (string, []types.InstanceView) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.generation, types.Views(l.items)
}

// Len returns the number of listed instances
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Generation identifies the current contents; it changes on LoadAll and Clear
func (l *List) Generation() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.generation
}

// Subscribe registers fn for list events and returns a function that
// removes it
func (l *List) Subscribe(fn Observer) (unsubscribe func()) {
	return l.observers.add(fn)
}

// Subscribers returns the number of registered observers
func (l *List) Subscribers() int {
	return l.observers.len()
}

// attach subscribes to inst's property changes. Caller holds writeMu.
func (l *List) attach(inst *types.Instance) {
	l.detach = append(l.detach, inst.OnPropertiesChanged(l.NotifyPropertiesChanged))
}

// detachAll drops every property subscription. Caller holds writeMu.
func (l *List) detachAll() {
	for _, cancel := range l.detach {
		cancel()
	}
	l.detach = nil
}

// emit delivers event to observers. Caller holds writeMu.
func (l *List) emit(event Event) {
	l.recorder.RecordEvent(event.Kind)
	l.observers.notify(event)
}
