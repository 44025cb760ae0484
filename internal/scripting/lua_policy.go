// Package scripting runs opponent policies written in Lua.
//
// A script defines a global function decide(view) that is called once per
// fighting tick and returns a table describing the intent:
//
//	function decide(view)
//	  if view.band == "far" then return { walk = view.toward } end
//	  return { attack = "ATTACK_LP" }
//	end
//
// Recognized result fields are walk (-1..1), crouch, jump, block,
// spectacle, parry (booleans) and attack (an action name such as
// "SPECIAL_1"). An optional reset() is called at every round start.
package scripting

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"critique-kombat/internal/game"

	lua "github.com/yuin/gopher-lua"
)

const (
	// maxLoggedErrors caps how many script failures are logged per policy
	maxLoggedErrors = 5

	// DefaultCallTimeout bounds one decide or reset call; the engine lock is
	// held while it runs
	DefaultCallTimeout = 20 * time.Millisecond

	// loadTimeout bounds running a script's top-level chunk
	loadTimeout = time.Second
)

// LuaPolicy is a game.Policy backed by a Lua state
type LuaPolicy struct {
	mu     sync.Mutex
	L      *lua.LState
	decide *lua.LFunction
	reset  *lua.LFunction
	rng    *rand.Rand

	name    string
	errors  int
	timeout time.Duration
}

// NewLuaPolicy compiles a script held in memory
func NewLuaPolicy(name, source string, seed int64) (*LuaPolicy, error) {
	p := newPolicy(name, seed)
	if err := p.load(func() error { return p.L.DoString(source) }); err != nil {
		p.L.Close()
		return nil, fmt.Errorf("load script %s: %w", name, err)
	}
	if err := p.bind(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadLuaPolicy compiles a script file
func LoadLuaPolicy(path string, seed int64) (*LuaPolicy, error) {
	p := newPolicy(path, seed)
	if err := p.load(func() error { return p.L.DoFile(path) }); err != nil {
		p.L.Close()
		return nil, fmt.Errorf("load script %s: %w", path, err)
	}
	if err := p.bind(); err != nil {
		return nil, err
	}
	return p, nil
}

func newPolicy(name string, seed int64) *LuaPolicy {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	// Only the pure libraries; scripts get no io or os access
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	p := &LuaPolicy{L: L, rng: rand.New(rand.NewSource(seed)), name: name, timeout: DefaultCallTimeout}
	p.registerHelpers()
	return p
}

// registerHelpers exposes a seeded random source and the distance bands
func (p *LuaPolicy) registerHelpers() {
	p.L.SetGlobal("random", p.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(p.rng.Float64()))
		return 1
	}))
	p.L.SetGlobal("band", p.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(game.ClassifyDistance(float64(L.CheckNumber(1))).String()))
		return 1
	}))
}

func (p *LuaPolicy) bind() error {
	fn, ok := p.L.GetGlobal("decide").(*lua.LFunction)
	if !ok {
		p.L.Close()
		return fmt.Errorf("script %s: no decide(view) function", p.name)
	}
	p.decide = fn
	if fn, ok := p.L.GetGlobal("reset").(*lua.LFunction); ok {
		p.reset = fn
	}
	return nil
}

// Decide implements game.Policy. A failing script yields an idle intent.
func (p *LuaPolicy) Decide(obs game.Observation) game.Intent {
	p.mu.Lock()
	defer p.mu.Unlock()

	top := p.L.GetTop()
	defer p.L.SetTop(top)

	if err := p.call(p.decide, 1, p.view(obs)); err != nil {
		p.fail(err)
		return game.Intent{}
	}
	result, ok := p.L.Get(-1).(*lua.LTable)
	if !ok {
		return game.Intent{}
	}
	return p.intent(result)
}

// Reset implements game.Resetter
func (p *LuaPolicy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reset == nil {
		return
	}
	if err := p.call(p.reset, 0); err != nil {
		p.fail(err)
	}
}

// SetCallTimeout changes the per-call deadline; d <= 0 restores the default
func (p *LuaPolicy) SetCallTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d <= 0 {
		d = DefaultCallTimeout
	}
	p.timeout = d
}

// call runs fn under a deadline. A script that overruns it is aborted with an error.
func (p *LuaPolicy) call(fn *lua.LFunction, nret int, args ...lua.LValue) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()
	return p.L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...)
}

func (p *LuaPolicy) load(run func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()
	return run()
}

// Errors counts script failures so far
func (p *LuaPolicy) Errors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errors
}

// Close releases the Lua state
func (p *LuaPolicy) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.L.Close()
}

func (p *LuaPolicy) fail(err error) {
	p.errors++
	if p.errors <= maxLoggedErrors {
		log.Printf("⚠️ AI script %s: %v", p.name, err)
	}
}

func (p *LuaPolicy) view(obs game.Observation) *lua.LTable {
	t := p.L.NewTable()
	t.RawSetString("tick", lua.LNumber(obs.Tick))
	t.RawSetString("distance", lua.LNumber(obs.Distance()))
	t.RawSetString("band", lua.LString(game.ClassifyDistance(obs.Distance()).String()))
	t.RawSetString("toward", lua.LNumber(obs.Toward()))
	t.RawSetString("self", p.fighter(obs.Self))
	t.RawSetString("opponent", p.fighter(obs.Opponent))
	return t
}

func (p *LuaPolicy) fighter(f game.FighterSnapshot) *lua.LTable {
	t := p.L.NewTable()
	t.RawSetString("character", lua.LString(f.Character))
	t.RawSetString("x", lua.LNumber(f.X))
	t.RawSetString("y", lua.LNumber(f.Y))
	t.RawSetString("vx", lua.LNumber(f.VX))
	t.RawSetString("vy", lua.LNumber(f.VY))
	t.RawSetString("hp", lua.LNumber(f.HP))
	t.RawSetString("meter", lua.LNumber(f.Meter))
	t.RawSetString("combo", lua.LNumber(f.ComboCount))
	t.RawSetString("action", lua.LString(f.Action.String()))
	t.RawSetString("frame", lua.LNumber(f.ActionFrame))
	t.RawSetString("stun", lua.LNumber(f.StunFrames))
	t.RawSetString("airborne", lua.LBool(f.Airborne()))
	t.RawSetString("attacking", lua.LBool(f.Action.IsAttack()))
	t.RawSetString("blocking", lua.LBool(f.IsBlocking))
	t.RawSetString("facingLeft", lua.LBool(f.FacingLeft))
	t.RawSetString("spectacle", lua.LBool(f.SpectacleMode))
	return t
}

func (p *LuaPolicy) intent(t *lua.LTable) game.Intent {
	var in game.Intent
	if n, ok := t.RawGetString("walk").(lua.LNumber); ok {
		in.Walk = max(-1, min(1, float64(n)))
	}
	in.Crouch = lua.LVAsBool(t.RawGetString("crouch"))
	in.Jump = lua.LVAsBool(t.RawGetString("jump"))
	in.Block = lua.LVAsBool(t.RawGetString("block"))
	in.Spectacle = lua.LVAsBool(t.RawGetString("spectacle"))
	in.Parry = lua.LVAsBool(t.RawGetString("parry"))
	if s, ok := t.RawGetString("attack").(lua.LString); ok {
		if a, ok := game.ParseAction(string(s)); ok && a.IsAttack() {
			in.Attack = a
		}
	}
	return in
}
