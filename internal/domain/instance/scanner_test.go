package instance_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/instance"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/testutil"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestScanSkipsDirectoriesWithoutMarker(t *testing.T) {
	root := t.TempDir()
	withMarker := testutil.WriteInstance(t, root, "a", nil)
	testutil.WriteDir(t, root, "b")
	testutil.WriteFile(t, filepath.Join(root, "notes.txt"), "hello")

	loader := testutil.NewMockLoader(t)
	inst := loader.ExpectLoaded(withMarker)

	logger, logs := observedLogger()
	result, err := instance.NewScanner(loader, logger).Scan(context.Background(), root)

	require.NoError(t, err)
	require.Len(t, result.Instances, 1)
	assert.Same(t, inst, result.Instances[0])
	assert.Equal(t, 2, result.Unmarked)
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestScanClassifiesOutcomes(t *testing.T) {
	root := t.TempDir()
	okDir := testutil.WriteInstance(t, root, "ok", nil)
	rejectDir := testutil.WriteInstance(t, root, "reject", nil)
	failDir := testutil.WriteInstance(t, root, "fail", nil)
	nilDir := testutil.WriteInstance(t, root, "nil", nil)

	loader := testutil.NewMockLoader(t)
	inst := loader.ExpectLoaded(okDir)
	loader.On("Load", mock.Anything, rejectDir).Return(instance.NotAnInstance(nil)).Once()
	loader.On("Load", mock.Anything, failDir).Return(instance.Failed(errors.New("corrupt"))).Once()
	loader.On("Load", mock.Anything, nilDir).Return(instance.Loaded(nil)).Once()

	logger, logs := observedLogger()
	result, err := instance.NewScanner(loader, logger).Scan(context.Background(), root)

	require.NoError(t, err)
	assert.Equal(t, []string{inst.ID()}, testutil.IDs(result.Instances))
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, 2, result.Failed)

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorLogs, 2)
	dirs := []string{errorLogs[0].ContextMap()["dir"].(string), errorLogs[1].ContextMap()["dir"].(string)}
	assert.ElementsMatch(t, []string{"fail", "nil"}, dirs)

	rejected := logs.FilterLevelExact(zapcore.DebugLevel).FilterField(zap.String("dir", "reject"))
	assert.Equal(t, 1, rejected.Len())
}

func TestScanOrderIsSortedByName(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"zulu", "mike", "alpha"} {
		testutil.WriteInstance(t, root, name, nil)
	}

	result, err := instance.NewScanner(testutil.DirNameLoader(), nil).Scan(context.Background(), root)

	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mike", "zulu"}, testutil.IDs(result.Instances))
}

func TestScanIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	testutil.WriteInstance(t, root, ".hidden", nil)
	testutil.WriteInstance(t, root, "backup-1", nil)
	testutil.WriteInstance(t, root, "keep", nil)

	t.Run("default hides dot directories", func(t *testing.T) {
		result, err := instance.NewScanner(testutil.DirNameLoader(), nil).Scan(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, []string{"backup-1", "keep"}, testutil.IDs(result.Instances))
	})

	t.Run("custom patterns replace default", func(t *testing.T) {
		scanner := instance.NewScanner(testutil.DirNameLoader(), nil).WithIgnore("backup-*", "[")
		result, err := scanner.Scan(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, []string{".hidden", "keep"}, testutil.IDs(result.Instances))
	})
}

func TestScanFollowsSymlinkedDirectories(t *testing.T) {
	root := t.TempDir()
	target := testutil.WriteInstance(t, t.TempDir(), "real", nil)
	if err := os.Symlink(target, filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	result, err := instance.NewScanner(testutil.DirNameLoader(), nil).Scan(context.Background(), root)

	require.NoError(t, err)
	assert.Equal(t, []string{"linked"}, testutil.IDs(result.Instances))
}

func TestScanCustomMarker(t *testing.T) {
	root := t.TempDir()
	testutil.WriteInstance(t, root, "cfg", nil)
	testutil.WriteFile(t, filepath.Join(root, "json", "instance.json"), "{}")

	scanner := instance.NewScanner(testutil.DirNameLoader(), nil).WithMarker("instance.json")
	result, err := scanner.Scan(context.Background(), root)

	require.NoError(t, err)
	assert.Equal(t, []string{"json"}, testutil.IDs(result.Instances))
}

func TestScanMissingRoot(t *testing.T) {
	result, err := instance.NewScanner(testutil.DirNameLoader(), nil).
		Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))

	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Empty(t, result.Instances)
}

func TestScanForwardsContext(t *testing.T) {
	type ctxKey struct{}
	root := t.TempDir()
	testutil.WriteInstance(t, root, "a", nil)

	var seen interface{}
	loader := instance.LoaderFunc(func(ctx context.Context, dir string) instance.LoadResult {
		seen = ctx.Value(ctxKey{})
		return instance.NotAnInstance(nil)
	})

	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")
	_, err := instance.NewScanner(loader, nil).Scan(ctx, root)

	require.NoError(t, err)
	assert.Equal(t, "marker", seen)
}

func TestProbe(t *testing.T) {
	root := t.TempDir()
	testutil.WriteInstance(t, root, "a", nil)
	testutil.WriteDir(t, root, "plain")
	testutil.WriteFile(t, filepath.Join(root, "file"), "x")

	scanner := instance.NewScanner(testutil.DirNameLoader(), nil)
	ctx := context.Background()

	res := scanner.Probe(ctx, root, "a")
	inst, ok := res.Instance()
	require.True(t, ok)
	assert.Equal(t, "a", inst.ID())

	res = scanner.Probe(ctx, root, "plain")
	assert.Equal(t, instance.OutcomeNotAnInstance, res.Outcome())
	assert.ErrorIs(t, res.Err(), instance.ErrNoMarker)

	assert.Equal(t, instance.OutcomeNotAnInstance, scanner.Probe(ctx, root, "file").Outcome())
	assert.Equal(t, instance.OutcomeNotAnInstance, scanner.Probe(ctx, root, "missing").Outcome())
}
