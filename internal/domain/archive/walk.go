package archive

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// Usage describes how much disk space an instance takes
type Usage struct {
	Files int64 `json:"files"`
	Dirs  int64 `json:"dirs"`
	Bytes int64 `json:"bytes"`
}

// DiskUsage totals the regular files below dir. Symlinks are not followed
// and unreadable entries are skipped.
func DiskUsage(ctx context.Context, dir string) (Usage, error) {
	var files, dirs, bytes atomic.Int64

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || path == dir {
			return nil
		}

		switch {
		case d.IsDir():
			dirs.Add(1)
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return nil
			}
			files.Add(1)
			bytes.Add(info.Size())
		}
		return nil
	})
	if err != nil {
		return Usage{}, err
	}

	return Usage{Files: files.Load(), Dirs: dirs.Load(), Bytes: bytes.Load()}, nil
}

type entry struct {
	rel  string
	path string
	dir  bool
}

// collect lists the directories and regular files below root in a stable
// order. fastwalk visits entries concurrently, so the result is sorted.
func collect(ctx context.Context, root string) ([]entry, error) {
	var (
		mu      sync.Mutex
		entries []entry
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		mu.Lock()
		entries = append(entries, entry{rel: filepath.ToSlash(rel), path: path, dir: d.IsDir()})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })
	return entries, nil
}
