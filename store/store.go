// Package store persists named blobs such as rig profiles.
package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rigview/logging"
)

// ErrNotFound is returned when nothing is stored under a name.
var ErrNotFound = errors.New("not found")

// A Store maps names to opaque documents.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Close(ctx context.Context) error
}

// IsNotFound reports whether err means the name had no entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("store entries need a name")
	}
	return nil
}

// Type selects a Store implementation.
type Type string

// The known store types.
const (
	TypeFile   Type = "file"
	TypeSQLite Type = "sqlite"
)

// Config describes which store to open.
type Config struct {
	Type Type   `json:"type"`
	Path string `json:"path"`
}

// Validate ensures all parts of the config are valid.
func (c Config) Validate(path string) error {
	var err error
	switch c.Type {
	case TypeFile, TypeSQLite:
	default:
		err = multierr.Append(err, errors.Errorf("%s: unknown store type %q", path, c.Type))
	}
	if c.Path == "" {
		err = multierr.Append(err, errors.Errorf("%s: store path is required", path))
	}
	return err
}

// Open returns the store described by conf.
func Open(ctx context.Context, conf Config, logger logging.Logger) (Store, error) {
	if err := conf.Validate("store"); err != nil {
		return nil, err
	}
	logger.Debugw("opening store", "type", conf.Type, "path", conf.Path)
	switch conf.Type {
	case TypeSQLite:
		return NewSQLiteStore(ctx, conf.Path)
	default:
		return NewFileStore(conf.Path)
	}
}
