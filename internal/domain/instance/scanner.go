package instance

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/paths"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

// DefaultIgnore hides dot-directories from the scan
var DefaultIgnore = []string{".*"}

// ErrNoMarker is returned by Probe for directories without the marker file
var ErrNoMarker = errors.New("marker file not found")

// ScanResult holds the outcome of one directory scan
type ScanResult struct {
	// Instances in scan order
	Instances []*types.Instance

	// Unmarked counts children skipped before reaching the loader
	Unmarked int

	// Rejected counts children the loader classified as NotAnInstance
	Rejected int

	// Failed counts children whose load failed
	Failed int
}

// Scanner enumerates the immediate children of an instance root and loads
// every child that carries the marker file.
type Scanner struct {
	loader   Loader
	logger   *zap.Logger
	marker   string
	ignore   []string
	recorder Recorder
}

// NewScanner creates a scanner that loads candidates through loader
func NewScanner(loader Loader, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		loader:   loader,
		logger:   logger,
		marker:   paths.MarkerFile,
		ignore:   DefaultIgnore,
		recorder: nopRecorder{},
	}
}

// WithMarker changes the marker file name
func (s *Scanner) WithMarker(name string) *Scanner {
	if name != "" {
		s.marker = name
	}
	return s
}

// WithIgnore replaces the ignore patterns. Patterns use doublestar syntax and
// match against the child's name; invalid patterns are dropped with a warning.
func (s *Scanner) WithIgnore(patterns ...string) *Scanner {
	valid := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			s.logger.Warn("Ignoring invalid scan pattern", zap.String("pattern", pattern))
			continue
		}
		valid = append(valid, pattern)
	}
	s.ignore = valid
	return s
}

// WithRecorder attaches a metrics recorder
func (s *Scanner) WithRecorder(recorder Recorder) *Scanner {
	if recorder != nil {
		s.recorder = recorder
	}
	return s
}

// Scan loads every instance below root in directory-name order.
// No single child aborts the scan; the error is non-nil only when root
// itself cannot be read.
func (s *Scanner) Scan(ctx context.Context, root string) (ScanResult, error) {
	var result ScanResult

	entries, err := os.ReadDir(root)
	if err != nil {
		return result, fmt.Errorf("read instance root %s: %w", root, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if s.ignored(name) || !isDirEntry(root, entry) {
			result.Unmarked++
			continue
		}

		dir := filepath.Join(root, name)
		res, marked := s.probe(ctx, dir)
		if !marked {
			result.Unmarked++
			continue
		}
		s.recorder.RecordCandidate(res.Outcome())

		switch res.Outcome() {
		case OutcomeOK:
			inst, _ := res.Instance()
			result.Instances = append(result.Instances, inst)
			s.logger.Debug("Loaded instance", zap.String("dir", name), zap.String("id", inst.ID()))
		case OutcomeNotAnInstance:
			result.Rejected++
			s.logger.Debug("Skipping directory", zap.String("dir", name), zap.Error(res.Err()))
		default:
			result.Failed++
			s.logger.Error("Failed to load instance", zap.String("dir", name), zap.Error(res.Err()))
		}
	}

	return result, nil
}

// Probe classifies a single child of root the way Scan would
func (s *Scanner) Probe(ctx context.Context, root, name string) LoadResult {
	if s.ignored(name) {
		return NotAnInstance(fmt.Errorf("%s is ignored", name))
	}

	dir := filepath.Join(root, name)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NotAnInstance(err)
		}
		return Failed(err)
	}
	if !info.IsDir() {
		return NotAnInstance(fmt.Errorf("%s is not a directory", name))
	}

	res, marked := s.probe(ctx, dir)
	if !marked {
		return NotAnInstance(ErrNoMarker)
	}
	return res
}

// probe runs the loader on dir. The bool is false when dir has no marker
// file, in which case the loader is not invoked.
func (s *Scanner) probe(ctx context.Context, dir string) (LoadResult, bool) {
	if _, err := os.Stat(filepath.Join(dir, s.marker)); err != nil {
		return LoadResult{}, false
	}
	return s.loader.Load(ctx, dir), true
}

func (s *Scanner) ignored(name string) bool {
	for _, pattern := range s.ignore {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// isDirEntry reports whether entry is a directory, following symlinks
func isDirEntry(root string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, entry.Name()))
	return err == nil && info.IsDir()
}
