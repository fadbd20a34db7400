package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// WriteAtomic replaces path with data so readers see either the old or the
// new content, never a partial write. Parent directories are created.
func WriteAtomic(path string, data []byte, mode os.FileMode) error {
	return replaceWith(path, mode, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
}

// MoveFile renames src to dst. Across filesystems it copies into a temp
// file beside dst, renames that into place and then removes src.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	return copyThenRemove(src, dst)
}

func copyThenRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	err = replaceWith(dst, info.Mode().Perm(), func(w io.Writer) (int64, error) {
		n, err := io.Copy(w, in)
		if err == nil && n != info.Size() {
			err = fmt.Errorf("short copy of %s: %d of %d bytes", src, n, info.Size())
		}
		return n, err
	})
	if err != nil {
		return err
	}
	return os.Remove(src)
}

// replaceWith streams fill into a hidden temp file in path's directory,
// syncs it and renames it over path. The temp file is removed on failure.
func replaceWith(path string, mode os.FileMode, fill func(io.Writer) (int64, error)) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = fill(tmp); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
