// Package history tracks and persists resolved stream records.
package history

import (
	"github.com/metafates/gache"
	"github.com/samber/mo"
	"github.com/spf13/viper"

	"github.com/vidgate/vidgate/filesystem"
	"github.com/vidgate/vidgate/key"
	"github.com/vidgate/vidgate/resolver"
	"github.com/vidgate/vidgate/where"
)

// cacher provides an abstracted, disk-backed registry for resolution records.
var cacher = gache.New[map[string]*SavedResolution](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns the complete collection of resolution records from the persistent store.
func Get() (map[string]*SavedResolution, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*SavedResolution), nil
	}
	return cached, nil
}

// Find returns the record for one source URL.
func Find(sourceURL string) mo.Option[*SavedResolution] {
	saved, err := Get()
	if err != nil {
		return mo.None[*SavedResolution]()
	}
	if record, exists := saved[sourceURL]; exists {
		return mo.Some(record)
	}
	return mo.None[*SavedResolution]()
}

// Save persists one successful resolution. Re-resolving the same source URL
// replaces the record and bumps its hit count. Saving is a no-op when
// disabled in config.
func Save(sourceURL string, result *resolver.Result) error {
	if !viper.GetBool(key.HistorySaveOnResolve) {
		return nil
	}
	if !result.OK() {
		return nil
	}

	saved, err := Get()
	if err != nil {
		return err
	}

	record := newSavedResolution(sourceURL, result)
	if existing, exists := saved[record.encode()]; exists {
		record.Hits = existing.Hits
	}
	record.Hits++

	saved[record.encode()] = record

	return cacher.Set(saved)
}

// Remove permanently deletes a specific resolution record.
func Remove(record *SavedResolution) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, record.encode())
	return cacher.Set(saved)
}
