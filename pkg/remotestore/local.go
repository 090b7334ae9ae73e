package remotestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalConfig roots the store at a directory on the local filesystem.
// Remote paths are resolved relative to Root.
type LocalConfig struct {
	Root string
}

type localConnector struct {
	root string
}

// NewLocalConnector returns a connector over a local directory tree, used for
// development setups where the drop location is a mounted volume.
func NewLocalConnector(cfg LocalConfig) Connector {
	return &localConnector{root: cfg.Root}
}

func (c *localConnector) Driver() string {
	return DriverLocal
}

func (c *localConnector) Connect(context.Context) (Session, error) {
	info, err := os.Stat(c.root)
	if err != nil {
		return nil, fmt.Errorf("local store root %s: %w", c.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local store root %s is not a directory", c.root)
	}
	return &localSession{root: c.root}, nil
}

type localSession struct {
	root string
}

func (s *localSession) resolve(p string) string {
	clean := filepath.Clean("/" + strings.TrimPrefix(filepath.FromSlash(p), string(filepath.Separator)))
	return filepath.Join(s.root, clean)
}

func (s *localSession) List(_ context.Context, dir string) ([]Entry, error) {
	items, err := os.ReadDir(s.resolve(dir))
	if err != nil {
		return nil, wrapNotExist(err, dir)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		info, err := item.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    item.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   item.IsDir(),
		})
	}
	return entries, nil
}

func (s *localSession) Open(_ context.Context, p string) (io.ReadCloser, error) {
	f, err := os.Open(s.resolve(p))
	if err != nil {
		return nil, wrapNotExist(err, p)
	}
	return f, nil
}

func (s *localSession) Mkdir(_ context.Context, dir string) error {
	err := os.Mkdir(s.resolve(dir), 0o755)
	if err == nil || errors.Is(err, fs.ErrExist) {
		return nil
	}
	return fmt.Errorf("failed to create %s: %w", dir, err)
}

func (s *localSession) Remove(_ context.Context, p string) error {
	err := os.Remove(s.resolve(p))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to remove %s: %w", p, err)
}

func (s *localSession) Rename(_ context.Context, oldPath, newPath string) error {
	if err := os.Rename(s.resolve(oldPath), s.resolve(newPath)); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", oldPath, newPath, wrapNotExist(err, oldPath))
	}
	return nil
}

func (s *localSession) Close() error {
	return nil
}
