// lua_api.go: value bridging between the runtime and plugin scripts
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"encoding/json"

	lua "github.com/yuin/gopher-lua"
)

// luaToGoValue converts a Lua value into plain Go data. Tables become maps,
// or slices when their keys are a 1..n sequence. Functions and userdata do
// not convert and come out nil.
func luaToGoValue(lv lua.LValue) interface{} {
	return luaToGoValueVisited(lv, make(map[*lua.LTable]bool))
}

func luaToGoValueVisited(lv lua.LValue, visited map[*lua.LTable]bool) interface{} {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return luaTableToGo(v, visited)
	default:
		return nil
	}
}

func luaTableToGo(t *lua.LTable, visited map[*lua.LTable]bool) interface{} {
	isArray := true
	maxIndex := 0
	count := 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		n, ok := k.(lua.LNumber)
		if !ok || float64(n) != float64(int(n)) || int(n) < 1 {
			isArray = false
			return
		}
		if int(n) > maxIndex {
			maxIndex = int(n)
		}
	})

	if isArray && count > 0 && maxIndex == count {
		arr := make([]interface{}, 0, count)
		for i := 1; i <= maxIndex; i++ {
			arr = append(arr, luaToGoValueVisited(t.RawGetInt(i), visited))
		}
		return arr
	}

	m := make(map[string]interface{})
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = luaToGoValueVisited(v, visited)
	})
	return m
}

// luaTableToManifest converts a script's plugin table into a manifest by
// round-tripping through JSON, so the wire tags do the field mapping.
func luaTableToManifest(path string, tbl *lua.LTable) (*PluginManifest, error) {
	goValue := luaToGoValue(tbl)
	data, err := json.Marshal(goValue)
	if err != nil {
		return nil, NewInvalidManifestError(path, err)
	}
	manifest := &PluginManifest{}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, NewInvalidManifestError(path, err)
	}
	manifest.applyDefaults()
	return manifest, nil
}

// argsToLuaTable builds the 1-based argument list handed to script command
// handlers.
func argsToLuaTable(L *lua.LState, args []string) *lua.LTable {
	tbl := L.NewTable()
	for _, arg := range args {
		tbl.Append(lua.LString(arg))
	}
	return tbl
}

// senderToLuaTable exposes a command sender to a script. Fields use plain
// dot-call convention: sender.send_message("hi").
func senderToLuaTable(L *lua.LState, sender CommandSender) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "name", lua.LString(sender.Name()))
	L.SetField(tbl, "role", lua.LString(sender.Role().String()))
	L.SetField(tbl, "send_message", L.NewFunction(func(L *lua.LState) int {
		sender.SendMessage(L.CheckString(1))
		return 0
	}))
	L.SetField(tbl, "has_permission", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(sender.HasPermission(L.CheckString(1))))
		return 1
	}))
	return tbl
}
