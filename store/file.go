package store

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/rigview/utils"
)

const fileExt = ".json"

// FileStore keeps one file per name in a directory. Names are escaped so that any name
// maps to a single file inside the directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "creating store directory %q", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return utils.SafeJoinDir(fs.dir, url.PathEscape(name)+fileExt)
}

// Get reads the document stored under name.
func (fs *FileStore) Get(ctx context.Context, name string) ([]byte, error) {
	p, err := fs.path(name)
	if err != nil {
		return nil, err
	}
	//nolint:gosec
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%q", name)
		}
		return nil, errors.Wrapf(err, "reading %q", name)
	}
	return data, nil
}

// Put replaces the document stored under name.
func (fs *FileStore) Put(ctx context.Context, name string, data []byte) error {
	p, err := fs.path(name)
	if err != nil {
		return err
	}
	return errors.Wrapf(utils.WriteFileAtomic(p, data, 0o600), "writing %q", name)
}

// Delete removes name. Deleting a missing name returns ErrNotFound.
func (fs *FileStore) Delete(ctx context.Context, name string) error {
	p, err := fs.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrNotFound, "%q", name)
		}
		return errors.Wrapf(err, "deleting %q", name)
	}
	return nil
}

// List returns the stored names in order.
func (fs *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %q", fs.dir)
	}
	var names []string
	for _, e := range entries {
		base := e.Name()
		if e.IsDir() || filepath.Ext(base) != fileExt {
			continue
		}
		name, err := url.PathUnescape(strings.TrimSuffix(base, fileExt))
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close does nothing; files are closed after every call.
func (fs *FileStore) Close(ctx context.Context) error {
	return nil
}
