// Package script compiles and executes Lua spider scripts, reusing compiled
// bytecode prototypes across states.
package script

import (
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/vidgate/vidgate/filesystem"
)

var bytecodeCache sync.Map

// CompileAndRun executes a Lua script within the provided LState, utilizing a
// bytecode cache to minimize compilation overhead.
func CompileAndRun(L *lua.LState, scriptPath string) error {
	if cachedProto, exists := bytecodeCache.Load(scriptPath); exists {
		fn := L.NewFunctionFromProto(cachedProto.(*lua.FunctionProto))
		L.Push(fn)
		return L.PCall(0, lua.MultRet, nil)
	}

	file, err := filesystem.API().Open(scriptPath)
	if err != nil {
		return err
	}
	defer file.Close()

	chunk, err := parse.Parse(file, scriptPath)
	if err != nil {
		return err
	}

	proto, err := lua.Compile(chunk, scriptPath)
	if err != nil {
		return err
	}

	bytecodeCache.Store(scriptPath, proto)

	fn := L.NewFunctionFromProto(proto)
	L.Push(fn)
	return L.PCall(0, lua.MultRet, nil)
}

// Invalidate drops the cached prototype for a path, forcing a recompile on
// the next run. Called after a script file is replaced on disk.
func Invalidate(scriptPath string) {
	bytecodeCache.Delete(scriptPath)
}
