package lua

import (
	"fmt"
	"reflect"

	glua "github.com/yuin/gopher-lua"
)

// Bridge converts values between Go and Lua representations.
type Bridge struct {
	L *glua.LState
}

func NewBridge(L *glua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value to a Go value.
func (b *Bridge) ToGoValue(lv glua.LValue) interface{} {
	return b.toGoValueWithVisited(lv, make(map[*glua.LTable]bool))
}

func (b *Bridge) toGoValueWithVisited(lv glua.LValue, visited map[*glua.LTable]bool) interface{} {
	if lv == nil {
		return nil
	}
	switch v := lv.(type) {
	case glua.LBool:
		return bool(v)
	case glua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case glua.LString:
		return string(v)
	case *glua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return b.tableToGoWithVisited(v, visited)
	case *glua.LNilType:
		return nil
	case *glua.LFunction:
		return nil
	case *glua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func (b *Bridge) tableToGoWithVisited(t *glua.LTable, visited map[*glua.LTable]bool) interface{} {
	isArray := true
	maxN := 0
	t.ForEach(func(k, _ glua.LValue) {
		if kn, ok := k.(glua.LNumber); ok {
			n := int(kn)
			if float64(n) == float64(kn) && n > 0 {
				if n > maxN {
					maxN = n
				}
				return
			}
		}
		isArray = false
	})

	if isArray && maxN > 0 {
		count := 0
		t.ForEach(func(_, _ glua.LValue) { count++ })
		if count != maxN {
			isArray = false
		}
	}

	if isArray && maxN > 0 {
		arr := make([]interface{}, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = b.toGoValueWithVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]interface{})
	t.ForEach(func(k, v glua.LValue) {
		var key string
		switch kv := k.(type) {
		case glua.LString:
			key = string(kv)
		case glua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = b.toGoValueWithVisited(v, visited)
	})
	return m
}

// ToLuaValue converts a Go value to a Lua value.
func (b *Bridge) ToLuaValue(v interface{}) glua.LValue {
	if v == nil {
		return glua.LNil
	}
	switch val := v.(type) {
	case bool:
		return glua.LBool(val)
	case int:
		return glua.LNumber(val)
	case int8:
		return glua.LNumber(val)
	case int16:
		return glua.LNumber(val)
	case int32:
		return glua.LNumber(val)
	case int64:
		return glua.LNumber(val)
	case uint:
		return glua.LNumber(val)
	case uint8:
		return glua.LNumber(val)
	case uint16:
		return glua.LNumber(val)
	case uint32:
		return glua.LNumber(val)
	case uint64:
		return glua.LNumber(val)
	case float32:
		return glua.LNumber(val)
	case float64:
		return glua.LNumber(val)
	case string:
		return glua.LString(val)
	case []byte:
		return glua.LString(val)
	case []interface{}:
		return b.sliceToTable(val)
	case []string:
		return b.stringSliceToTable(val)
	case []int:
		return b.intSliceToTable(val)
	case map[string]interface{}:
		return b.mapToTable(val)
	case map[string]string:
		return b.stringMapToTable(val)
	case glua.LValue:
		return val
	default:
		return b.reflectToLua(v)
	}
}

func (b *Bridge) sliceToTable(s []interface{}) *glua.LTable {
	t := b.L.NewTable()
	for i, v := range s {
		t.RawSetInt(i+1, b.ToLuaValue(v))
	}
	return t
}

func (b *Bridge) stringSliceToTable(s []string) *glua.LTable {
	t := b.L.NewTable()
	for i, v := range s {
		t.RawSetInt(i+1, glua.LString(v))
	}
	return t
}

func (b *Bridge) intSliceToTable(s []int) *glua.LTable {
	t := b.L.NewTable()
	for i, v := range s {
		t.RawSetInt(i+1, glua.LNumber(v))
	}
	return t
}

func (b *Bridge) mapToTable(m map[string]interface{}) *glua.LTable {
	t := b.L.NewTable()
	for k, v := range m {
		t.RawSetString(k, b.ToLuaValue(v))
	}
	return t
}

func (b *Bridge) stringMapToTable(m map[string]string) *glua.LTable {
	t := b.L.NewTable()
	for k, v := range m {
		t.RawSetString(k, glua.LString(v))
	}
	return t
}

func (b *Bridge) reflectToLua(v interface{}) glua.LValue {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return glua.LNil
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return glua.LNil
		}
		return b.reflectToLua(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		t := b.L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, b.ToLuaValue(rv.Index(i).Interface()))
		}
		return t
	case reflect.Map:
		t := b.L.NewTable()
		for _, key := range rv.MapKeys() {
			t.RawSet(b.ToLuaValue(key.Interface()), b.ToLuaValue(rv.MapIndex(key).Interface()))
		}
		return t
	case reflect.Struct:
		return b.structToTable(rv)
	default:
		ud := b.L.NewUserData()
		ud.Value = v
		return ud
	}
}

func (b *Bridge) structToTable(rv reflect.Value) *glua.LTable {
	t := b.L.NewTable()
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" && tag != "-" {
			for j := 0; j < len(tag); j++ {
				if tag[j] == ',' {
					tag = tag[:j]
					break
				}
			}
			if tag != "" {
				name = tag
			}
		}
		t.RawSetString(name, b.ToLuaValue(rv.Field(i).Interface()))
	}
	return t
}

func (b *Bridge) GetTableField(t *glua.LTable, key string) glua.LValue {
	return t.RawGetString(key)
}

func (b *Bridge) GetTableString(t *glua.LTable, key string) (string, bool) {
	if s, ok := t.RawGetString(key).(glua.LString); ok {
		return string(s), true
	}
	return "", false
}

func (b *Bridge) GetTableInt(t *glua.LTable, key string) (int, bool) {
	if n, ok := t.RawGetString(key).(glua.LNumber); ok {
		return int(n), true
	}
	return 0, false
}

func (b *Bridge) GetTableBool(t *glua.LTable, key string) (bool, bool) {
	if bv, ok := t.RawGetString(key).(glua.LBool); ok {
		return bool(bv), true
	}
	return false, false
}

func (b *Bridge) GetTableFunc(t *glua.LTable, key string) (*glua.LFunction, bool) {
	if f, ok := t.RawGetString(key).(*glua.LFunction); ok {
		return f, true
	}
	return nil, false
}

func (b *Bridge) GetTableTable(t *glua.LTable, key string) (*glua.LTable, bool) {
	if tt, ok := t.RawGetString(key).(*glua.LTable); ok {
		return tt, true
	}
	return nil, false
}

// CallFunc calls a Lua function with Go arguments and returns Go values.
func (b *Bridge) CallFunc(fn *glua.LFunction, args ...interface{}) ([]interface{}, error) {
	stackTop := b.L.GetTop()
	b.L.Push(fn)
	for _, arg := range args {
		b.L.Push(b.ToLuaValue(arg))
	}
	if err := b.L.PCall(len(args), glua.MultRet, nil); err != nil {
		return nil, err
	}
	nRet := b.L.GetTop() - stackTop
	if nRet <= 0 {
		return nil, nil
	}
	results := make([]interface{}, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = b.ToGoValue(b.L.Get(stackTop + i + 1))
	}
	b.L.Pop(nRet)
	return results, nil
}

// WrapGoFunc wraps a Go function taking/returning interface{} for use
// as a Lua-callable function.
func (b *Bridge) WrapGoFunc(fn func(args []interface{}) (interface{}, error)) glua.LGFunction {
	return func(L *glua.LState) int {
		nArgs := L.GetTop()
		args := make([]interface{}, nArgs)
		for i := 1; i <= nArgs; i++ {
			args[i-1] = b.ToGoValue(L.Get(i))
		}
		result, err := fn(args)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		if result == nil {
			return 0
		}
		L.Push(b.ToLuaValue(result))
		return 1
	}
}

func (b *Bridge) NewTable() *glua.LTable {
	return b.L.NewTable()
}

func (b *Bridge) SetTableField(t *glua.LTable, key string, value interface{}) {
	t.RawSetString(key, b.ToLuaValue(value))
}
