//go:build !no_automation

package automation

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"zigbee-fanswitch/internal/device"
	"zigbee-fanswitch/internal/relay"
)

const maxHandlersPerScript = 100

// registerFanModule registers the `fan` global table in a Lua state.
func registerFanModule(L *lua.LState, vm *scriptVM, e *Engine) {
	mod := L.NewTable()

	mod.RawSetString("get", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(bool(e.dev.Relay().Get())))
		return 1
	}))

	mod.RawSetString("set", L.NewFunction(func(L *lua.LState) int {
		return fanSet(L, e)
	}))

	mod.RawSetString("toggle", L.NewFunction(func(L *lua.LState) int {
		e.applyState(!e.dev.Relay().Get())
		return 0
	}))

	mod.RawSetString("on_change", L.NewFunction(func(L *lua.LState) int {
		return fanOnChange(L, vm)
	}))

	mod.RawSetString("on_joined", L.NewFunction(func(L *lua.LState) int {
		return fanOnJoined(L, vm)
	}))

	mod.RawSetString("after", L.NewFunction(func(L *lua.LState) int {
		return fanAfter(L, vm, e)
	}))

	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		e.logger.Info("script log", "msg", msg)
		return 0
	}))

	L.SetGlobal("fan", mod)
}

// fan.set(state) accepts a boolean or the strings "ON"/"OFF".
func fanSet(L *lua.LState, e *Engine) int {
	var target relay.State
	switch v := L.CheckAny(1).(type) {
	case lua.LBool:
		target = relay.State(bool(v))
	case lua.LString:
		switch string(v) {
		case "ON", "on":
			target = relay.On
		case "OFF", "off":
			target = relay.Off
		default:
			L.RaiseError("fan.set: invalid state %q", string(v))
			return 0
		}
	default:
		L.RaiseError("fan.set: expected boolean or string")
		return 0
	}
	e.applyState(target)
	return 0
}

// fan.on_change(callback) registers a handler for state changes.
func fanOnChange(L *lua.LState, vm *scriptVM) int {
	return registerHandler(L, vm, device.EventStateChanged, L.CheckFunction(1))
}

// fan.on_joined(callback) registers a handler for network join.
func fanOnJoined(L *lua.LState, vm *scriptVM) int {
	return registerHandler(L, vm, device.EventNetworkJoined, L.CheckFunction(1))
}

func registerHandler(L *lua.LState, vm *scriptVM, eventType string, fn *lua.LFunction) int {
	vm.mu.Lock()
	if len(vm.handlers) >= maxHandlersPerScript {
		vm.mu.Unlock()
		L.RaiseError("too many handlers (max %d)", maxHandlersPerScript)
		return 0
	}
	vm.handlers = append(vm.handlers, luaEventHandler{eventType: eventType, fn: fn})
	vm.mu.Unlock()
	return 0
}

// fan.after(ms, callback) runs the callback once after a delay, on the
// script's command loop.
func fanAfter(L *lua.LState, vm *scriptVM, e *Engine) int {
	ms := L.CheckInt(1)
	fn := L.CheckFunction(2)

	time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
		select {
		case <-vm.ctx.Done():
		case vm.commands <- func(L *lua.LState) {
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
				e.logger.Error("lua timer callback", "err", err)
			}
		}:
		}
	})
	return 0
}

func (e *Engine) applyState(s relay.State) {
	if err := e.dev.ApplyLocal(s); err != nil {
		e.logger.Warn("script apply state", "state", s, "err", err)
	}
}
