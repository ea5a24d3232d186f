package geolocation

import (
	"bufio"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression is the container a database file is wrapped in.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionBzip2 // read only
)

// CompressionForPath picks the compression from a file extension.
func CompressionForPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".bz2":
		return CompressionBzip2
	}
	return CompressionNone
}

// OpenDatabase reads the database at path, decompressing it according to
// its extension.
func OpenDatabase(path string, opts ...Option) (*Database, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer fh.Close()

	r, cleanup, err := decompressor(fh, CompressionForPath(path))
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	defer cleanup()

	db, err := ReadDatabase(r, opts...)
	if err != nil {
		return nil, fmt.Errorf("reading database %s: %w", path, err)
	}
	return db, nil
}

func decompressor(r io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		return zr, zr.Close, nil
	case CompressionBzip2:
		return bzip2.NewReader(r), func() {}, nil
	}
	return r, func() {}, nil
}

// ErrReadOnlyCompression is returned when saving to a format that can only be read.
var ErrReadOnlyCompression = errors.New("compression format is read only")

// SaveDatabase writes db to path, compressing it according to its
// extension. The file is written next to the destination and renamed into
// place, so a failed save leaves any existing file untouched.
func SaveDatabase(db *Database, path string) error {
	c := CompressionForPath(path)
	if c == CompressionBzip2 {
		return fmt.Errorf("saving %s: %w", path, ErrReadOnlyCompression)
	}

	out, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmp := out.Name()

	success := false
	defer func() {
		if !success {
			out.Close()
			os.Remove(tmp) // best-effort cleanup of partial file
		}
	}()

	if err := writeCompressed(db, out, c); err != nil {
		return fmt.Errorf("writing database %s: %w", path, err)
	}
	if err := out.Chmod(0644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", tmp, err)
	}
	// Close explicitly to catch flush errors before the rename.
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	success = true
	return nil
}

func writeCompressed(db *Database, w io.Writer, c Compression) error {
	bw := bufio.NewWriter(w)
	switch c {
	case CompressionGzip:
		zw := gzip.NewWriter(bw)
		if err := WriteDatabase(db, zw); err != nil {
			zw.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("closing gzip stream: %w", err)
		}
	case CompressionZstd:
		zw, err := zstd.NewWriter(bw)
		if err != nil {
			return fmt.Errorf("creating zstd writer: %w", err)
		}
		if err := WriteDatabase(db, zw); err != nil {
			zw.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("closing zstd stream: %w", err)
		}
	default:
		if err := WriteDatabase(db, bw); err != nil {
			return err
		}
	}
	return bw.Flush()
}
