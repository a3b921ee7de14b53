package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Format is an export archive format
type Format string

const (
	FormatZip    Format = "zip"
	FormatTarZst Format = "tar.zst"
)

// ParseFormat validates an archive format name. Empty means zip.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case "", FormatZip:
		return FormatZip, nil
	case FormatTarZst, "zst", "tzst":
		return FormatTarZst, nil
	default:
		return "", fmt.Errorf("unsupported archive format %q", name)
	}
}

// ContentType returns the MIME type of the archive
func (f Format) ContentType() string {
	if f == FormatTarZst {
		return "application/zstd"
	}
	return "application/zip"
}

// Extension returns the file extension including the leading dot
func (f Format) Extension() string {
	return "." + string(f)
}

// Stats describes a finished export
type Stats struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// Export writes an archive of dir to w. Entries are stored below the
// directory's base name in lexical order; symlinks are skipped.
func Export(ctx context.Context, dir string, format Format, w io.Writer) (Stats, error) {
	entries, err := collect(ctx, dir)
	if err != nil {
		return Stats{}, fmt.Errorf("walk %s: %w", dir, err)
	}

	prefix := filepath.Base(dir)
	switch format {
	case FormatZip:
		return writeZip(ctx, prefix, entries, w)
	case FormatTarZst:
		return writeTarZst(ctx, prefix, entries, w)
	default:
		return Stats{}, fmt.Errorf("unsupported archive format %q", format)
	}
}

func writeZip(ctx context.Context, prefix string, entries []entry, w io.Writer) (Stats, error) {
	var stats Stats
	zw := zip.NewWriter(w)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return stats, err
		}

		info, err := os.Lstat(e.path)
		if err != nil {
			zw.Close()
			return stats, err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			zw.Close()
			return stats, err
		}
		header.Name = prefix + "/" + e.rel

		if e.dir {
			header.Name += "/"
			header.Method = zip.Store
			if _, err := zw.CreateHeader(header); err != nil {
				zw.Close()
				return stats, err
			}
			continue
		}

		header.Method = zip.Deflate
		fw, err := zw.CreateHeader(header)
		if err != nil {
			zw.Close()
			return stats, err
		}
		n, err := copyFile(fw, e.path)
		if err != nil {
			zw.Close()
			return stats, err
		}
		stats.Files++
		stats.Bytes += n
	}

	return stats, zw.Close()
}

func writeTarZst(ctx context.Context, prefix string, entries []entry, w io.Writer) (Stats, error) {
	var stats Stats

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return stats, err
	}
	tw := tar.NewWriter(enc)

	fail := func(err error) (Stats, error) {
		tw.Close()
		enc.Close()
		return stats, err
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		info, err := os.Lstat(e.path)
		if err != nil {
			return fail(err)
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fail(err)
		}
		header.Name = prefix + "/" + e.rel
		if e.dir {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return fail(err)
		}
		if e.dir {
			continue
		}

		n, err := copyFile(tw, e.path)
		if err != nil {
			return fail(err)
		}
		stats.Files++
		stats.Bytes += n
	}

	if err := tw.Close(); err != nil {
		enc.Close()
		return stats, err
	}
	return stats, enc.Close()
}

func copyFile(w io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}
