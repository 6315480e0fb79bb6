// Package filesystem routes every disk access through one swappable afero
// backend, so tests and CI can run against an in-memory filesystem.
package filesystem

import "github.com/spf13/afero"

var active = afero.Afero{Fs: afero.NewOsFs()}

// API returns the afero handle all packages perform filesystem work through.
func API() afero.Afero {
	return active
}

// SetOsFs switches the backend to the real operating system filesystem.
func SetOsFs() {
	active = afero.Afero{Fs: afero.NewOsFs()}
}

// SetMemMapFs switches the backend to a volatile in-memory filesystem.
func SetMemMapFs() {
	active = afero.Afero{Fs: afero.NewMemMapFs()}
}
