package lua

import (
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestBridgeRoundTripPrimitives(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	b := NewBridge(L)

	cases := []interface{}{true, int64(42), "hello", 3.5}
	for _, c := range cases {
		got := b.ToGoValue(b.ToLuaValue(c))
		if got != c {
			t.Errorf("round trip %v (%T) = %v (%T)", c, c, got, got)
		}
	}
}

func TestBridgeSliceToTable(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	b := NewBridge(L)

	lv := b.ToLuaValue([]string{"a", "b", "c"})
	got := b.ToGoValue(lv)
	arr, ok := got.([]interface{})
	if !ok || len(arr) != 3 || arr[0] != "a" || arr[2] != "c" {
		t.Errorf("ToGoValue(table) = %#v, want [a b c]", got)
	}
}

func TestBridgeMapToTable(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	b := NewBridge(L)

	lv := b.ToLuaValue(map[string]interface{}{"name": "red", "count": 3})
	got, ok := b.ToGoValue(lv).(map[string]interface{})
	if !ok {
		t.Fatalf("ToGoValue(table) = %#v, want map", got)
	}
	if got["name"] != "red" {
		t.Errorf("got[name] = %v, want red", got["name"])
	}
}

func TestBridgeStructToTable(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	b := NewBridge(L)

	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	lv := b.ToLuaValue(point{X: 1, Y: 2})
	tbl, ok := lv.(*glua.LTable)
	if !ok {
		t.Fatalf("ToLuaValue(struct) = %#v, want *LTable", lv)
	}
	if x, _ := b.GetTableInt(tbl, "x"); x != 1 {
		t.Errorf("table.x = %d, want 1", x)
	}
}

func TestBridgeCallFunc(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	b := NewBridge(L)

	if err := L.DoString(`function double(n) return n * 2 end`); err != nil {
		t.Fatal(err)
	}
	fn, ok := L.GetGlobal("double").(*glua.LFunction)
	if !ok {
		t.Fatal("expected double to be a function")
	}
	results, err := b.CallFunc(fn, int64(21))
	if err != nil {
		t.Fatalf("CallFunc() error = %v", err)
	}
	if len(results) != 1 || results[0] != int64(42) {
		t.Errorf("CallFunc(double, 21) = %v, want [42]", results)
	}
}

func TestBridgeCircularTableDoesNotHang(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	b := NewBridge(L)

	t1 := L.NewTable()
	t1.RawSetString("self", t1)
	_ = b.ToGoValue(t1) // must return without infinite recursion
}
