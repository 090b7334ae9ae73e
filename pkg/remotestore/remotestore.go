// Package remotestore abstracts the drop location trade files are delivered to.
//
// A Connector opens a Session per polling cycle; the session is the only handle
// used for listing, reading and archiving, and must be closed by the caller.
package remotestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"
)

const (
	DriverSFTP  = "sftp"
	DriverS3    = "s3"
	DriverLocal = "local"
)

// ErrNotExist is returned (wrapped) when a path is missing on the remote side.
var ErrNotExist = errors.New("remote path does not exist")

// Entry describes one item of a directory listing.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Session is a live connection to the drop location.
type Session interface {
	// List returns the direct children of dir.
	List(ctx context.Context, dir string) ([]Entry, error)
	// Open returns a reader for the file at p. The caller closes it.
	Open(ctx context.Context, p string) (io.ReadCloser, error)
	// Mkdir creates dir. An existing directory is not an error.
	Mkdir(ctx context.Context, dir string) error
	// Remove deletes the file at p. A missing file is not an error.
	Remove(ctx context.Context, p string) error
	// Rename moves a file from oldPath to newPath.
	Rename(ctx context.Context, oldPath, newPath string) error
	Close() error
}

// Connector opens sessions against one configured drop location.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
	Driver() string
}

// Join builds a remote path. Remote paths always use forward slashes.
func Join(elem ...string) string {
	return path.Join(elem...)
}

// ReadFile reads the whole file at p.
func ReadFile(ctx context.Context, s Session, p string) ([]byte, error) {
	rc, err := s.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return content, nil
}
