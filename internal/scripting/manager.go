package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dccqol/internal/game/dice"
)

// globalScope is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no scene VM is found.
const globalScope = "__global__"

// PreAttackHook is the Lua global consulted for situational attack modifiers.
const PreAttackHook = "pre_attack"

// vm is one sandboxed LState. An LState is single-threaded, so calls hold mu.
type vm struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
}

// Manager owns one sandboxed LState per scene plus an optional global VM and
// exposes hook dispatch.
//
// Manager is safe for concurrent CallHook; calls into the same VM are serialized.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadScene creates a sandboxed VM for sceneID, registers the engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: sceneID must be non-empty; scriptDir must be a readable directory.
// Postcondition: Scene VM is registered; returns error on Lua load failure.
func (m *Manager) LoadScene(sceneID, scriptDir string, instLimit int) error {
	return m.loadInto(sceneID, scriptDir, instLimit)
}

// LoadGlobal creates the shared VM used as a CallHook fallback from any scene.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalScope, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	L := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		disarm := arm(context.Background(), L, instLimit)
		err := L.DoFile(path)
		disarm()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.vms[key]; ok {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.vms[key] = &vm{L: L, instLimit: instLimit}
	m.mu.Unlock()
	return nil
}

func (m *Manager) lookup(sceneID string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vms[sceneID]; ok {
		return v
	}
	return m.vms[globalScope]
}

// CallHook calls the named Lua global function in sceneID's VM. If the scene
// has no VM, the global VM is tried as a fallback. Returns (LNil, nil) if the
// hook is not defined or no VM exists. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(ctx context.Context, sceneID, hook string, args ...lua.LValue) (lua.LValue, error) {
	return m.call(ctx, sceneID, hook, func(*lua.LState) []lua.LValue { return args }, nil)
}

// call runs hook with arguments built by build inside the VM lock, then hands
// the first return value to read while the lock is still held.
func (m *Manager) call(ctx context.Context, sceneID, hook string, build func(*lua.LState) []lua.LValue, read func(lua.LValue)) (lua.LValue, error) {
	v := m.lookup(sceneID)
	if v == nil {
		m.logger.Debug("scripting: no VM for scene",
			zap.String("scene", sceneID),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	disarm := arm(ctx, v.L, v.instLimit)
	defer disarm()
	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, build(v.L)...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scene", sceneID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	if read != nil {
		read(ret)
	}
	return ret, nil
}

// Close releases every VM.
//
// Postcondition: all VMs are closed and removed; later CallHook calls return LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
		delete(m.vms, key)
	}
}
