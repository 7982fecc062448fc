package api

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// toLValue converts a Go value to its Lua representation, grounded on
// teacher internal/plugin/api/event.go's anyToLValue, generalized
// across every module in this package instead of being duplicated per
// module.
func toLValue(L *lua.LState, v interface{}) lua.LValue {
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
	case []string:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, lua.LString(item))
		}
		return tbl
	case []interface{}:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, toLValue(L, item))
		}
		return tbl
	case map[string]interface{}:
		return mapToTable(L, val)
	case []CommandInfo:
		tbl := L.NewTable()
		for i, c := range val {
			tbl.RawSetInt(i+1, toLValue(L, map[string]interface{}{
				"id": c.ID, "title": c.Title, "plugin": c.Plugin,
			}))
		}
		return tbl
	case []LogEntry:
		tbl := L.NewTable()
		for i, e := range val {
			tbl.RawSetInt(i+1, toLValue(L, map[string]interface{}{
				"level": e.Level, "message": e.Message, "time": e.Time.Format("15:04:05.000"),
			}))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// mapToTable converts a Go map to a Lua table.
func mapToTable(L *lua.LState, data map[string]interface{}) *lua.LTable {
	tbl := L.NewTable()
	if data == nil {
		return tbl
	}
	for k, v := range data {
		tbl.RawSetString(k, toLValue(L, v))
	}
	return tbl
}

// toGoValue converts a Lua value to a Go value, grounded on teacher
// internal/plugin/api/event.go's lvalueToAny.
func toGoValue(v lua.LValue) interface{} {
	if v == nil || v == lua.LNil {
		return nil
	}
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		return tableToAny(val)
	default:
		return val.String()
	}
}

// tableToAny converts a Lua table to either a []interface{} (when every
// key is a contiguous 1-based integer) or a map[string]interface{}.
func tableToAny(tbl *lua.LTable) interface{} {
	isArray := true
	maxIdx := 0
	tbl.ForEach(func(k, _ lua.LValue) {
		if num, ok := k.(lua.LNumber); ok && float64(int(num)) == float64(num) && int(num) > 0 {
			if int(num) > maxIdx {
				maxIdx = int(num)
			}
		} else {
			isArray = false
		}
	})

	if isArray && maxIdx > 0 {
		arr := make([]interface{}, maxIdx)
		tbl.ForEach(func(k, v lua.LValue) {
			if num, ok := k.(lua.LNumber); ok {
				idx := int(num) - 1
				if idx >= 0 && idx < maxIdx {
					arr[idx] = toGoValue(v)
				}
			}
		})
		return arr
	}

	result := make(map[string]interface{})
	tbl.ForEach(func(k, v lua.LValue) {
		var key string
		switch kk := k.(type) {
		case lua.LString:
			key = string(kk)
		default:
			key = k.String()
		}
		result[key] = toGoValue(v)
	})
	return result
}

// tableToMap converts a Lua table to a Go map, used where the caller
// knows the argument must be a table (event data, overlay specs).
func tableToMap(tbl *lua.LTable) map[string]interface{} {
	if tbl == nil {
		return nil
	}
	v := tableToAny(tbl)
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return make(map[string]interface{})
}

// stringField reads a string field from a table, defaulting to "".
func stringField(tbl *lua.LTable, name string) string {
	v := tbl.RawGetString(name)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// intField reads an int field from a table, defaulting to def.
func intField(tbl *lua.LTable, name string, def int) int {
	v := tbl.RawGetString(name)
	if n, ok := v.(lua.LNumber); ok {
		return int(n)
	}
	return def
}

// stringSliceField reads an array-of-string field from a table.
func stringSliceField(tbl *lua.LTable, name string) []string {
	v := tbl.RawGetString(name)
	arr, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	arr.ForEach(func(_, val lua.LValue) {
		if s, ok := val.(lua.LString); ok {
			out = append(out, string(s))
		}
	})
	return out
}
