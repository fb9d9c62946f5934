// Package filex contains the file primitives the filesystem-backed stores
// are built on: traversal-safe path building and atomic writes.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm  = 0o770
	filePerm = 0o660
)

// ErrInvalidSegment is returned for path segments that could escape the
// directory they are joined to.
var ErrInvalidSegment = errors.New("invalid path segment")

// CheckSegment rejects empty names, "." and "..", and anything containing a
// path separator or NUL.
func CheckSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidSegment, s)
	}
	return nil
}

// Join validates every element and joins them below root.
func Join(root string, elems ...string) (string, error) {
	for _, e := range elems {
		if err := CheckSegment(e); err != nil {
			return "", err
		}
	}
	return filepath.Join(append([]string{root}, elems...)...), nil
}

// EnsureDir creates dir and its parents if they are missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// WriteExclusive creates path with data only if it does not exist yet. The
// content is staged in a temporary file and hard-linked into place, so
// readers never see a partial file and exactly one of several concurrent
// writers wins. Losers get an error matching fs.ErrExist.
func WriteExclusive(path string, data []byte) error {
	tmp, err := stage(path, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", path, fs.ErrExist)
		}
		return fmt.Errorf("link %s: %w", path, err)
	}
	return nil
}

// WriteReplacing atomically replaces path with data.
func WriteReplacing(path string, data []byte) error {
	tmp, err := stage(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// ReadIfExists returns the content of path and whether it exists.
func ReadIfExists(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return data, true, nil
}

// Exists reports whether path exists.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

func stage(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp in %s: %w", dir, err)
	}
	name := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(name, filePerm); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}
	return name, nil
}
