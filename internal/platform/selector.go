package platform

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// SelectVariant decides the release channel for gameDir. Without a
// script the built-in marker heuristic decides. A selector script runs
// in a sandboxed Lua VM with read-only "platform" and "game" globals
// and may return a variant string to override the heuristic; returning
// nil (or nothing) accepts the detected value.
func SelectVariant(scriptPath, gameDir string, info *Info) (string, error) {
	detected := DetectVariant(gameDir)
	if scriptPath == "" {
		return detected, nil
	}

	L := newSandboxedVM()
	defer L.Close()

	injectGlobals(L, info, gameDir, detected)

	if err := L.DoFile(scriptPath); err != nil {
		return "", fmt.Errorf("run selector script %s: %w", scriptPath, err)
	}

	if L.GetTop() == 0 {
		return detected, nil
	}
	switch ret := L.Get(-1).(type) {
	case *lua.LNilType:
		return detected, nil
	case lua.LString:
		variant := string(ret)
		if variant == "" {
			return "", fmt.Errorf("selector script %s returned an empty variant", scriptPath)
		}
		return variant, nil
	default:
		return "", fmt.Errorf("selector script %s returned %s, want a string or nil",
			scriptPath, ret.Type())
	}
}

// sandboxLuaVM strips the VM of everything that could execute commands,
// touch the filesystem, or load external code. string, table, and math
// stay available; selector scripts are decision logic, not programs.
func sandboxLuaVM(L *lua.LState) {
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("debug", lua.LNil)
}

func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	sandboxLuaVM(L)
	return L
}

func injectGlobals(L *lua.LState, info *Info, gameDir, detected string) {
	platformTable := L.NewTable()
	L.SetField(platformTable, "os", lua.LString(info.OS))
	L.SetField(platformTable, "arch", lua.LString(info.Arch))
	L.SetField(platformTable, "is_linux", lua.LBool(info.OS == "linux"))
	L.SetField(platformTable, "is_macos", lua.LBool(info.OS == "darwin"))
	L.SetField(platformTable, "is_windows", lua.LBool(info.OS == "windows"))
	if info.Distro != "" {
		L.SetField(platformTable, "distro", lua.LString(info.Distro))
		L.SetField(platformTable, "distro_version", lua.LString(info.DistroVersion))
	} else {
		L.SetField(platformTable, "distro", lua.LNil)
		L.SetField(platformTable, "distro_version", lua.LNil)
	}
	L.SetGlobal("platform", makeReadOnly(L, platformTable))

	gameTable := L.NewTable()
	L.SetField(gameTable, "dir", lua.LString(gameDir))
	L.SetField(gameTable, "detected", lua.LString(detected))
	L.SetField(gameTable, "is_steam", lua.LBool(detected == VariantSteam))
	L.SetGlobal("game", makeReadOnly(L, gameTable))
}

// makeReadOnly wraps table in an empty proxy whose metatable redirects
// reads to the original and raises on every write.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)
	return proxy
}
