package luamod

import (
	lua "github.com/yuin/gopher-lua"
)

// toLua converts a Go value to a Lua value. Maps with string keys become
// tables, slices become 1-based array tables, and unsupported types map
// to nil.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	default:
		return lua.LNil
	}
}

// fromLua converts a Lua value to a Go value. Tables with contiguous
// 1-based integer keys become slices, everything else becomes a map.
func fromLua(lv lua.LValue) any {
	switch val := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(val)
	case *lua.LTable:
		return tableFromLua(val)
	default:
		return nil
	}
}

func tableFromLua(t *lua.LTable) any {
	if n := t.Len(); n > 0 && isArray(t, n) {
		arr := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			arr = append(arr, fromLua(t.RawGetInt(i)))
		}
		return arr
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			m[string(ks)] = fromLua(v)
		}
	})
	return m
}

// isArray reports whether the table holds only the contiguous integer
// keys 1..n.
func isArray(t *lua.LTable, n int) bool {
	count := 0
	ok := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		num, isNum := k.(lua.LNumber)
		if !isNum || float64(num) != float64(int(num)) || int(num) < 1 || int(num) > n {
			ok = false
		}
	})
	return ok && count == n
}
