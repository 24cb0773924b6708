package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/solarflow/solarshop-backend/pkg/storage"
)

// Disk stores objects under a root directory on the local filesystem.
type Disk struct {
	root   string
	prefix string
}

func New(root, prefix string) (*Disk, error) {
	if root == "" {
		return nil, errors.New("local storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Disk{root: root, prefix: prefix}, nil
}

func (d *Disk) Put(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	objectPath := storage.ObjectPath(d.prefix, name)
	if !storage.ValidObjectPath(objectPath) {
		return "", fmt.Errorf("invalid object name %q", name)
	}

	full := d.fullPath(objectPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("move object into place: %w", err)
	}
	return objectPath, nil
}

func (d *Disk) Get(ctx context.Context, objectPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !storage.ValidObjectPath(objectPath) {
		return nil, storage.ErrNotFound
	}
	data, err := os.ReadFile(d.fullPath(objectPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	return data, err
}

func (d *Disk) Exists(ctx context.Context, objectPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !storage.ValidObjectPath(objectPath) {
		return false, nil
	}
	_, err := os.Stat(d.fullPath(objectPath))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (d *Disk) fullPath(objectPath string) string {
	return filepath.Join(d.root, filepath.FromSlash(objectPath))
}
