package instance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestParseGroupFileMissingIsSilent(t *testing.T) {
	logger, logs := observedLogger()

	groups := ParseGroupFile(filepath.Join(t.TempDir(), "instgroups.json"), logger)

	assert.Empty(t, groups)
	assert.Zero(t, logs.Len())
}

func TestParseGroupFileUnreadableWarns(t *testing.T) {
	logger, logs := observedLogger()
	dir := t.TempDir()

	// A directory in place of the file cannot be read as one
	groups := ParseGroupFile(dir, logger)

	assert.Empty(t, groups)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestParseGroupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instgroups.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"formatVersion": 1,
		"groups": {
			"Modded": {"instances": ["a", "b"]},
			"Vanilla": {"instances": ["c"]}
		}
	}`), 0o644))

	logger, logs := observedLogger()
	groups := ParseGroupFile(path, logger)

	assert.Equal(t, GroupMap{"a": "Modded", "b": "Modded", "c": "Vanilla"}, groups)
	assert.Zero(t, logs.Len())
}

func TestParseGroupsDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"formatVersion": 1, "groups": {`},
		{"empty document", ``},
		{"root is array", `[1, 2, 3]`},
		{"root is string", `"groups"`},
		{"wrong version", `{"formatVersion": 2, "groups": {"G": {"instances": ["a"]}}}`},
		{"missing version", `{"groups": {"G": {"instances": ["a"]}}}`},
		{"version as string", `{"formatVersion": "1", "groups": {"G": {"instances": ["a"]}}}`},
		{"missing groups", `{"formatVersion": 1}`},
		{"groups is array", `{"formatVersion": 1, "groups": [{"instances": ["a"]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := observedLogger()

			groups := parseGroups([]byte(tt.data), logger)

			assert.Empty(t, groups)
			assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
		})
	}
}

func TestParseGroupsSkipsMalformedGroups(t *testing.T) {
	logger, logs := observedLogger()

	groups := parseGroups([]byte(`{
		"formatVersion": 1,
		"groups": {
			"Broken": 5,
			"NoList": {"members": ["x"]},
			"BadList": {"instances": "x"},
			"Good": {"instances": ["a", 7, null, {"id": "q"}, "b"]}
		}
	}`), logger)

	assert.Equal(t, GroupMap{"a": "Good", "b": "Good"}, groups)
	assert.Equal(t, 3, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	for _, entry := range logs.All() {
		assert.Contains(t, entry.ContextMap(), "group")
	}
}

func TestParseGroupsDuplicateIDLastGroupWins(t *testing.T) {
	logger, _ := observedLogger()

	groups := parseGroups([]byte(`{
		"formatVersion": 1,
		"groups": {
			"Zeta": {"instances": ["a"]},
			"Alpha": {"instances": ["a", "b"]}
		}
	}`), logger)

	assert.Equal(t, GroupMap{"a": "Zeta", "b": "Alpha"}, groups)
}

func TestParseGroupsEmptyGroups(t *testing.T) {
	logger, logs := observedLogger()

	groups := parseGroups([]byte(`{"formatVersion": 1, "groups": {"Empty": {"instances": []}}}`), logger)

	assert.Empty(t, groups)
	assert.Zero(t, logs.Len())
}

func TestGroupMapMembers(t *testing.T) {
	groups := GroupMap{"b": "G", "a": "G", "c": "H"}

	assert.Equal(t, map[string][]string{
		"G": {"a", "b"},
		"H": {"c"},
	}, groups.Members())
}
