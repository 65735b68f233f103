package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RegisterModules registers the engine.log and engine.dice Lua tables into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	logMod := L.NewTable()
	logMod.RawSetString("debug", L.NewFunction(m.luaLog(zap.DebugLevel)))
	logMod.RawSetString("info", L.NewFunction(m.luaLog(zap.InfoLevel)))
	logMod.RawSetString("warn", L.NewFunction(m.luaLog(zap.WarnLevel)))
	engine.RawSetString("log", logMod)

	diceMod := L.NewTable()
	diceMod.RawSetString("roll", L.NewFunction(m.luaRoll))
	engine.RawSetString("dice", diceMod)

	L.SetGlobal("engine", engine)
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		if ce := m.logger.Check(level, L.CheckString(1)); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}

// luaRoll implements engine.dice.roll(expr): returns the total, or nil and an
// error message for an invalid expression.
func (m *Manager) luaRoll(L *lua.LState) int {
	res, err := m.roller.RollExpr(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(res.Total()))
	return 1
}
