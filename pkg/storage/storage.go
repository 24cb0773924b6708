// Package storage stores generated documents such as invoice PDFs.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotFound is returned when an object does not exist on the disk.
var ErrNotFound = errors.New("storage object not found")

// Disk is implemented by the local filesystem and GCS backends.
type Disk interface {
	// Put writes data under name and returns the stored object path.
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, objectPath string) ([]byte, error)
	Exists(ctx context.Context, objectPath string) (bool, error)
}

// ObjectPath joins a prefix and a file name into a clean relative object path.
func ObjectPath(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if prefix == "" {
		return path.Clean(name)
	}
	return path.Clean(prefix + "/" + name)
}

// ValidObjectPath rejects absolute paths and traversal.
func ValidObjectPath(objectPath string) bool {
	if objectPath == "" || strings.HasPrefix(objectPath, "/") {
		return false
	}
	for _, part := range strings.Split(objectPath, "/") {
		if part == ".." || part == "" {
			return false
		}
	}
	return true
}
