package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/loader"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/format"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/config"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/logging"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	testutil.WriteInstance(t, root, "alpha", map[string]string{loader.KeyType: types.TypeOneSix})
	testutil.WriteInstance(t, root, "bravo", nil)
	testutil.WriteInstance(t, root, "modpack", map[string]string{loader.KeyType: "Flatpak"})
	testutil.WriteInstance(t, root, ".trash", nil)

	cfg := config.Default()
	cfg.Instances.Dir = root
	cfg.RateLimit.Enabled = false
	return cfg
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNewServerLoadsInstances(t *testing.T) {
	s, err := NewServerWithLogger(testConfig(t), logging.NewNop())
	require.NoError(t, err)
	defer s.Close()

	w := get(t, s, "/api/instances")
	require.Equal(t, http.StatusOK, w.Code)

	var doc format.Document
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &doc))
	// Unknown types and hidden directories are not listed
	assert.Equal(t, 2, doc.Count)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	w = get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "prisonlauncher_instances 2")
	assert.Contains(t, w.Body.String(), `prisonlauncher_instance_candidates_total{outcome="not_an_instance"} 1`)
}

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = "0"

	_, err := NewServerWithLogger(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestRateLimitIsApplied(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1

	s, err := NewServerWithLogger(cfg, logging.NewNop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, http.StatusOK, get(t, s, "/health").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, s, "/health").Code)
}

func TestWatcherReloadsList(t *testing.T) {
	cfg := testConfig(t)
	cfg.Watch.Enabled = true
	cfg.Watch.Debounce = config.Duration(50 * time.Millisecond)

	s, err := NewServerWithLogger(cfg, logging.NewNop())
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, 2, s.List().Len())

	testutil.WriteInstance(t, cfg.Instances.Dir, "charlie", nil)
	assert.Eventually(t, func() bool { return s.List().Len() == 3 }, 3*time.Second, 20*time.Millisecond)
}

func TestUnreachableRedisIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.URL = "redis://127.0.0.1:1/0"

	s, err := NewServerWithLogger(cfg, logging.NewNop())
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.bus)
	assert.Equal(t, http.StatusOK, get(t, s, "/health").Code)
}

func TestCloseIsSafeBeforeRun(t *testing.T) {
	s, err := NewServerWithLogger(testConfig(t), logging.NewNop())
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
