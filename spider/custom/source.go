// Package custom provides a bridge between the Go core and Lua-based spider scripts.
package custom

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

type luaSpider struct {
	name  string
	state *lua.LState
}

// Name returns the spider name.
func (s *luaSpider) Name() string {
	return s.name
}

// ID returns the spider ID.
func (s *luaSpider) ID() string {
	return IDfromName(s.name) // Defined in loader.go
}

func newLuaSpider(name string, state *lua.LState) (*luaSpider, error) {
	s := &luaSpider{
		name:  name,
		state: state,
	}

	return s, nil
}

// call executes a global Lua function safely.
func (s *luaSpider) call(fn string, retType lua.LValueType, args ...lua.LValue) (lua.LValue, error) {
	luaFn := s.state.GetGlobal(fn)
	if luaFn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("function %s is not defined", fn)
	}

	err := s.state.CallByParam(lua.P{
		Fn:      luaFn,
		NRet:    1,
		Protect: true,
	}, args...)

	if err != nil {
		return nil, err
	}

	retval := s.state.Get(-1)
	s.state.Pop(1) // Clean stack

	if retval.Type() != retType {
		return nil, fmt.Errorf("%s returned %s, expected %s", fn, retval.Type(), retType)
	}

	return retval, nil
}
