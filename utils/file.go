// Package utils contains small filesystem helpers shared by the stores and exporters.
package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// SafeJoinDir performs a filepath.Join of 'parent' and 'name' but returns an error
// if the resulting path points outside of 'parent'.
func SafeJoinDir(parent, name string) (string, error) {
	res := filepath.Join(parent, name)
	if !strings.HasPrefix(filepath.Clean(res), filepath.Clean(parent)+string(os.PathSeparator)) {
		return res, errors.Errorf("unsafe path join: '%s' with '%s'", parent, name)
	}
	return res, nil
}

// RemoveFileNoError will remove the file at the given path if it exists. Any
// errors will be suppressed.
func RemoveFileNoError(path string) {
	utils.UncheckedErrorFunc(func() error {
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
		return nil
	})
}

// WriteFileAtomic writes data to a temporary file next to path and renames it into place,
// so readers never observe a half written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			RemoveFileNoError(tmp.Name())
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return multierr.Combine(err, tmp.Close())
	}
	if err := tmp.Chmod(perm); err != nil {
		return multierr.Combine(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
