// Package spider manages pluggable site-extraction scripts.
package spider

import (
	"path/filepath"

	"github.com/vidgate/vidgate/filesystem"
	"github.com/vidgate/vidgate/internal/script"
	"github.com/vidgate/vidgate/spider/custom"
	"github.com/vidgate/vidgate/util"
	"github.com/vidgate/vidgate/where"
)

// Spider represents one installed extraction script.
type Spider struct {
	ID     string
	Name   string
	Path   string
	Create func() (custom.Source, error)
}

func (s *Spider) String() string {
	return s.Name
}

// Customs returns all available Lua spiders.
func Customs() []*Spider {
	spiders, _ := CustomSpiders()
	return spiders
}

// Reload drops the compiled bytecode of every installed script so the next
// load picks up edits from disk. Returns how many scripts were invalidated.
func Reload() int {
	spiders := Customs()
	for _, s := range spiders {
		script.Invalidate(s.Path)
	}
	return len(spiders)
}

// Get finds a spider by name.
func Get(name string) (*Spider, bool) {
	for _, s := range Customs() {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// CustomSpiders scans the spiders directory for Lua scripts.
func CustomSpiders() ([]*Spider, error) {
	files, err := filesystem.API().ReadDir(where.Spiders())
	if err != nil {
		return nil, err
	}

	var spiders []*Spider
	for _, f := range files {
		if filepath.Ext(f.Name()) != ".lua" {
			continue
		}

		if f.Name() == "common.lua" {
			continue
		}

		path := filepath.Join(where.Spiders(), f.Name())
		name := util.FileStem(f.Name())

		spiders = append(spiders, &Spider{
			ID:   custom.IDfromName(name),
			Name: name,
			Path: path,
			Create: func() (custom.Source, error) {
				return custom.LoadSpider(path)
			},
		})
	}

	return spiders, nil
}
