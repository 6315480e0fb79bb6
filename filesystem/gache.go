// Package filesystem routes every disk access through one swappable afero
// backend, so tests and CI can run against an in-memory filesystem.
package filesystem

import (
	"io"
	"os"
)

// GacheFs satisfies gache's FileSystem interface on top of the active
// backend, keeping persisted registries (rules, hosts, history) inside the
// same filesystem the rest of the app writes to.
type GacheFs struct{}

// OpenFile opens a file on the active backend.
func (GacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return API().OpenFile(name, flag, perm)
}

// MkdirAll creates a directory tree on the active backend.
func (GacheFs) MkdirAll(path string, perm os.FileMode) error {
	return API().MkdirAll(path, perm)
}
