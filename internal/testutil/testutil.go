// Package testutil provides testing utilities and helpers for backend tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/instance"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/paths"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

// MockLoader is a mock implementation of instance.Loader for testing.
type MockLoader struct {
	mock.Mock
}

// Load mocks the Load method.
func (m *MockLoader) Load(ctx context.Context, dir string) instance.LoadResult {
	args := m.Called(ctx, dir)
	return args.Get(0).(instance.LoadResult)
}

// NewMockLoader creates a new mock loader with default behaviors.
func NewMockLoader(t *testing.T) *MockLoader {
	t.Helper()
	m := new(MockLoader)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ExpectLoaded makes the mock load dir as an instance named after the directory.
func (m *MockLoader) ExpectLoaded(dir string) *types.Instance {
	inst := types.NewInstance(filepath.Base(dir), dir, types.InstanceMeta{})
	m.On("Load", mock.Anything, dir).Return(instance.Loaded(inst)).Once()
	return inst
}

// DirNameLoader loads every directory as an instance whose id is its base name.
func DirNameLoader() instance.Loader {
	return instance.LoaderFunc(func(_ context.Context, dir string) instance.LoadResult {
		return instance.Loaded(types.NewInstance(filepath.Base(dir), dir, types.InstanceMeta{}))
	})
}

// WriteInstance creates root/name with an instance.cfg built from cfg.
func WriteInstance(t *testing.T, root, name string, cfg map[string]string) string {
	t.Helper()

	keys := make([]string, 0, len(cfg))
	for key := range cfg {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&sb, "%s=%s\n", key, cfg[key])
	}

	dir := filepath.Join(root, name)
	WriteFile(t, filepath.Join(dir, paths.MarkerFile), sb.String())
	return dir
}

// WriteDir creates root/name without a marker file.
func WriteDir(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// WriteGroupFile writes a version 1 group file mapping group -> instance ids.
func WriteGroupFile(t *testing.T, root string, groups map[string][]string) {
	t.Helper()

	doc := map[string]interface{}{
		"formatVersion": instance.GroupFileFormatVersion,
		"groups":        map[string]interface{}{},
	}
	for name, ids := range groups {
		doc["groups"].(map[string]interface{})[name] = map[string]interface{}{
			"instances": ids,
		}
	}

	data, err := sonic.Marshal(doc)
	require.NoError(t, err)
	WriteFile(t, paths.At(root).GroupFile(), string(data))
}

// EventRecorder collects list events.
type EventRecorder struct {
	mu     sync.Mutex
	events []instance.Event
}

// Observe records ev; pass it to List.Subscribe.
func (r *EventRecorder) Observe(ev instance.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns the recorded events.
func (r *EventRecorder) Events() []instance.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]instance.Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events.
func (r *EventRecorder) Kinds() []instance.EventKind {
	events := r.Events()
	kinds := make([]instance.EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// Reset drops recorded events.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// IDs returns the ids of instances in order.
func IDs(instances []*types.Instance) []string {
	ids := make([]string, len(instances))
	for i, inst := range instances {
		ids[i] = inst.ID()
	}
	return ids
}
