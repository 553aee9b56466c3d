// Package fsstore performs the file system side of a ranking run: listing
// exported strategy files, resetting the destination directory and copying
// files under their ranked names.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/sqxrank/pkg/logger"
)

const (
	dirPermission = 0o755
	tempPattern   = ".sqxrank-*"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets the logger used for per-file debug records.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store operates on the local file system.
type Store struct {
	logger logger.Logger
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the names of the non-directory entries of dir in lexical order.
func (s *Store) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrList, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Inspect checks that Reset and Copy can work on dir without changing
// anything visible: dir must be absent or a directory, and the directory
// that will be written (dir itself, or its parent when dir is absent)
// must accept new files. Every subdirectory of an existing dir must too,
// since Reset empties it.
func (s *Store) Inspect(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return writable(filepath.Dir(dir))
	case err != nil:
		return fmt.Errorf("%w: %w", ErrReset, err)
	case !info.IsDir():
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotWritable, err)
		}
		if !d.IsDir() {
			return nil
		}
		return writable(path)
	})
}

// writable creates and removes a hidden temp file in dir.
func writable(dir string) error {
	f, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	name := f.Name()
	cerr := f.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	if cerr != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, cerr)
	}
	return nil
}

// Reset leaves dir as an existing empty directory: every file and
// subdirectory inside it is removed, or the directory is created. It
// returns how many entries were removed.
func (s *Store) Reset(ctx context.Context, dir string) (int, error) {
	if err := s.Inspect(dir); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReset, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReset, err)
	}

	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, fmt.Errorf("context cancelled: %w", err)
		}
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("%w: %w", ErrReset, err)
		}
		removed++
		s.debug(ctx, "removed destination entry", logger.String("path", path))
	}
	return removed, nil
}

// Copy copies src to dst, replacing dst, and carries over the permission
// bits and modification time of src.
func (s *Store) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}
	s.debug(ctx, "copied strategy file", logger.String("src", src), logger.String("dst", dst))
	return nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err == nil {
			err = os.Chtimes(dst, info.ModTime(), info.ModTime())
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Chmod(info.Mode().Perm())
}

func (s *Store) debug(ctx context.Context, msg string, fields ...logger.Field) {
	if s.logger != nil {
		s.logger.Debug(ctx, msg, fields...)
	}
}
