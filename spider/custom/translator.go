// Package custom provides a bridge between the Go core and Lua-based spider scripts.
package custom

import (
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

// Helper to get string from table with default
func getString(table *lua.LTable, key string) string {
	val := table.RawGetString(key)
	if val.Type() == lua.LTString {
		return val.String()
	}
	return ""
}

// Helper to get an integer from table, accepting numeric strings
func getInt(table *lua.LTable, key string) int {
	val := table.RawGetString(key)
	switch val.Type() {
	case lua.LTNumber:
		return int(val.(lua.LNumber))
	case lua.LTString:
		if n, err := strconv.Atoi(val.String()); err == nil {
			return n
		}
	}
	return 0
}

// Helper to get a string-valued map from a nested table
func getStringMap(table *lua.LTable, key string) map[string]string {
	val := table.RawGetString(key)
	nested, ok := val.(*lua.LTable)
	if !ok {
		return nil
	}

	m := make(map[string]string)
	nested.ForEach(func(k, v lua.LValue) {
		if k.Type() == lua.LTString && v.Type() == lua.LTString {
			m[k.String()] = v.String()
		}
	})

	if len(m) == 0 {
		return nil
	}
	return m
}

func stringsToTable(state *lua.LState, values []string) *lua.LTable {
	table := state.NewTable()
	for _, v := range values {
		table.Append(lua.LString(v))
	}
	return table
}
