// Package custom provides a bridge between the Go core and Lua-based spider scripts.
package custom

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/vidgate/vidgate/constant"
)

// PlayerContent asks the script for the playback descriptor of one page.
// vipFlags lists the hostnames the script should treat as premium sources.
func (s *luaSpider) PlayerContent(flag, id string, vipFlags []string) (*Descriptor, error) {
	val, err := s.call(
		constant.SpiderPlayerContentFn,
		lua.LTTable,
		lua.LString(flag),
		lua.LString(id),
		stringsToTable(s.state, vipFlags),
	)
	if err != nil {
		return nil, err
	}

	return descriptorFromTable(val.(*lua.LTable))
}

func descriptorFromTable(table *lua.LTable) (*Descriptor, error) {
	url := getString(table, "url")
	if url == "" {
		return nil, fmt.Errorf("descriptor must have url")
	}

	d := &Descriptor{
		Parse:   getInt(table, "parse"),
		PlayURL: getString(table, "playUrl"),
		URL:     url,
		Header:  getStringMap(table, "header"),
	}

	if d.Parse != ParseDirect && d.Parse != ParseSniff {
		return nil, fmt.Errorf("descriptor parse must be 0 or 1, got %d", d.Parse)
	}

	return d, nil
}
