// lua_loader.go: Lua script plugin loader
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// luaScriptPattern accepts standalone script plugins; luaManifestPattern
// accepts the canonical manifest of a directory plugin whose entry script
// sits beside it.
var (
	luaScriptPattern   = regexp.MustCompile(`\.lua$`)
	luaManifestPattern = regexp.MustCompile(`^plugin\.(toml|yaml|yml|json)$`)
)

// defaultLuaEntry is the entry script a directory plugin runs when its
// manifest names none.
const defaultLuaEntry = "main.lua"

// LuaPluginLoader loads plugins written in Lua.
//
// Two shapes are understood:
//   - a standalone .lua file that declares a global plugin table with its
//     name, version and command/permission specs
//   - a directory whose plugin.toml/yaml/yml/json manifest describes the
//     plugin and optionally names the entry script
//
// Each plugin runs in its own interpreter with only the base, table, string
// and math libraries opened. Script failures surface as errors and never
// crash the host.
type LuaPluginLoader struct {
	BaseLoader
}

// NewLuaPluginLoader creates the loader logging through the given logger.
func NewLuaPluginLoader(logger Logger) *LuaPluginLoader {
	return &LuaPluginLoader{BaseLoader: NewBaseLoader(logger)}
}

// PluginFileFilters implements PluginLoader.
func (l *LuaPluginLoader) PluginFileFilters() []*regexp.Regexp {
	return []*regexp.Regexp{luaScriptPattern, luaManifestPattern}
}

// LoadPlugin implements PluginLoader.
func (l *LuaPluginLoader) LoadPlugin(path string) (Plugin, error) {
	if luaManifestPattern.MatchString(filepath.Base(path)) {
		return l.loadFromManifest(path)
	}
	return l.loadStandalone(path)
}

// loadFromManifest loads a directory plugin: parse the manifest, then run
// the entry script next to it.
func (l *LuaPluginLoader) loadFromManifest(path string) (Plugin, error) {
	manifest, err := ParseManifest(path)
	if err != nil {
		return nil, err
	}
	desc, err := manifest.Describe()
	if err != nil {
		return nil, err
	}
	if !apiVersionCompatible(desc.APIVersion) {
		return nil, NewInvalidManifestError(path, nil).
			WithContext("api_version", desc.APIVersion).
			WithContext("supported", CurrentAPIVersion)
	}

	entry := manifest.Entry
	if entry == "" {
		entry = defaultLuaEntry
	}
	scriptPath := filepath.Join(filepath.Dir(path), entry)
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, NewFileNotFoundError(scriptPath)
	}

	plugin := newLuaPlugin(desc)
	if err := plugin.runScript(scriptPath); err != nil {
		plugin.closeState()
		return nil, err
	}
	return plugin, nil
}

// loadStandalone loads a single-file plugin: run the script, then read its
// global plugin table as the manifest.
func (l *LuaPluginLoader) loadStandalone(path string) (Plugin, error) {
	plugin := newLuaPlugin(nil)
	if err := plugin.runScript(path); err != nil {
		plugin.closeState()
		return nil, err
	}

	tbl, ok := plugin.state.GetGlobal("plugin").(*lua.LTable)
	if !ok {
		plugin.closeState()
		return nil, NewInvalidManifestError(path, nil).
			WithContext("reason", "script declares no plugin table")
	}
	manifest, err := luaTableToManifest(path, tbl)
	if err != nil {
		plugin.closeState()
		return nil, err
	}
	desc, err := manifest.Describe()
	if err != nil {
		plugin.closeState()
		return nil, err
	}
	if !apiVersionCompatible(desc.APIVersion) {
		plugin.closeState()
		return nil, NewInvalidManifestError(path, nil).
			WithContext("api_version", desc.APIVersion).
			WithContext("supported", CurrentAPIVersion)
	}

	plugin.desc = desc
	return plugin, nil
}

// Script hook names a Lua plugin may declare.
const (
	luaHookOnLoad    = "on_load"
	luaHookOnEnable  = "on_enable"
	luaHookOnDisable = "on_disable"
	luaHookOnCommand = "on_command"
)

// LuaPlugin is one loaded Lua script with its interpreter. The interpreter
// is not goroutine-safe, so every entry into it goes through the plugin
// mutex.
type LuaPlugin struct {
	BasePlugin
	mu    sync.Mutex
	desc  *PluginDescription
	state *lua.LState
}

func newLuaPlugin(desc *PluginDescription) *LuaPlugin {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	plugin := &LuaPlugin{desc: desc, state: L}
	plugin.installAPI()
	return plugin
}

// installAPI exposes the host surface scripts program against. Logging goes
// through the plugin's named logger once the manager has wired it.
func (p *LuaPlugin) installAPI() {
	L := p.state
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"log_debug": func(L *lua.LState) int {
			p.Logger().Debug(L.CheckString(1))
			return 0
		},
		"log_info": func(L *lua.LState) int {
			p.Logger().Info(L.CheckString(1))
			return 0
		},
		"log_warn": func(L *lua.LState) int {
			p.Logger().Warn(L.CheckString(1))
			return 0
		},
		"log_error": func(L *lua.LState) int {
			p.Logger().Error(L.CheckString(1))
			return 0
		},
		"api_version": func(L *lua.LState) int {
			L.Push(lua.LString(CurrentAPIVersion))
			return 1
		},
	})
	L.SetGlobal("basalt", mod)
}

func (p *LuaPlugin) runScript(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.state.DoFile(path); err != nil {
		name := path
		if p.desc != nil {
			name = p.desc.Name
		}
		return NewScriptFailureError(name, err)
	}
	return nil
}

func (p *LuaPlugin) closeState() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Close()
}

// call invokes an optional global script function. Missing hooks are fine;
// script errors and panics come back as ScriptFailure.
func (p *LuaPlugin) call(name string, args ...lua.LValue) (ret lua.LValue, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn := p.state.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			ret = lua.LNil
			err = NewScriptFailureError(p.desc.Name, nil).
				WithContext("hook", name).
				WithContext("panic", r)
		}
	}()

	if callErr := p.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); callErr != nil {
		return lua.LNil, NewScriptFailureError(p.desc.Name, callErr).
			WithContext("hook", name)
	}

	ret = p.state.Get(-1)
	p.state.Pop(1)
	return ret, nil
}

// Description implements Plugin.
func (p *LuaPlugin) Description() *PluginDescription {
	return p.desc
}

// OnLoad implements Plugin, forwarding to the script's on_load hook.
func (p *LuaPlugin) OnLoad() error {
	_, err := p.call(luaHookOnLoad)
	return err
}

// OnEnable implements Plugin, forwarding to the script's on_enable hook.
func (p *LuaPlugin) OnEnable() error {
	_, err := p.call(luaHookOnEnable)
	return err
}

// OnDisable implements Plugin, forwarding to the script's on_disable hook.
func (p *LuaPlugin) OnDisable() error {
	_, err := p.call(luaHookOnDisable)
	return err
}

// OnCommand implements Plugin. The script's on_command hook receives the
// sender surface, the command label and the argument list, and reports
// whether it handled the invocation.
func (p *LuaPlugin) OnCommand(sender CommandSender, cmd Command, args []string) bool {
	p.mu.Lock()
	senderTbl := senderToLuaTable(p.state, sender)
	argsTbl := argsToLuaTable(p.state, args)
	p.mu.Unlock()

	ret, err := p.call(luaHookOnCommand,
		senderTbl,
		lua.LString(cmd.Name()),
		argsTbl,
	)
	if err != nil {
		p.Logger().Error("Command handler failed", "command", cmd.Name(), "error", err)
		return false
	}
	return lua.LVAsBool(ret)
}
