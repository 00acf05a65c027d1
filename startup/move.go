package startup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxSuffix bounds the collision search in uniqueTarget.
const maxSuffix = 10000

// uniqueTarget returns dir/base if free, otherwise dir/<stem><suffix(n)><ext>
// for the first n = 1, 2, ... that does not exist.
func uniqueTarget(dir, base string, suffix func(n int) string) string {
	target := filepath.Join(dir, base)
	if !exists(target) {
		return target
	}
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	for n := 1; n < maxSuffix; n++ {
		target = filepath.Join(dir, name+suffix(n)+ext)
		if !exists(target) {
			return target
		}
	}
	return target
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// moveFile renames src to dst, falling back to copy-then-remove when the
// rename crosses volumes. dst must not exist. If the source cannot be removed
// after copying, the copy is removed so the file stays in one place.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if exists(dst) {
		return fmt.Errorf("move %s: %w", src, err)
	}

	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("remove %s: %w", src, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}
