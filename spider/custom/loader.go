// Package custom provides a bridge between the Go core and Lua-based spider scripts.
package custom

import (
	"fmt"

	libs "github.com/metafates/mangal-lua-libs"
	lua "github.com/yuin/gopher-lua"

	"github.com/vidgate/vidgate/constant"
	"github.com/vidgate/vidgate/internal/script"
	"github.com/vidgate/vidgate/util"
)

// IDfromName generates a canonical spider identifier for a given Lua script basename.
func IDfromName(name string) string {
	return name + " custom"
}

// LoadSpider initializes a new Source instance by executing and validating a
// Lua spider script.
func LoadSpider(path string) (Source, error) {
	state := lua.NewState()
	libs.Preload(state)
	registerTLSClient(state) // Injected from wrapper_tls.go

	// Load and compile the Lua script (using cache if available).
	err := script.CompileAndRun(state, path)
	if err != nil {
		return nil, err
	}

	name := util.FileStem(path)

	// Validation
	if state.GetGlobal(constant.SpiderPlayerContentFn).Type() != lua.LTFunction {
		return nil, fmt.Errorf("function %s is required but not defined in %s", constant.SpiderPlayerContentFn, name)
	}

	s, err := newLuaSpider(name, state)
	if err != nil {
		return nil, err
	}

	// Init is optional. When defined it runs once at load time.
	if state.GetGlobal(constant.SpiderInitFn).Type() == lua.LTFunction {
		if err := state.CallByParam(lua.P{
			Fn:      state.GetGlobal(constant.SpiderInitFn),
			NRet:    0,
			Protect: true,
		}); err != nil {
			return nil, fmt.Errorf("%s failed in %s: %w", constant.SpiderInitFn, name, err)
		}
	}

	return s, nil
}
