// Package script runs Lua scripts against an editing session.
//
// Scripts see two modules, level and history, and a reduced standard
// library: base, table, string and math. io, os, debug and package are not
// opened, and dofile, loadfile, load, loadstring and require are removed.
//
//	local id = level.add("crate", 3, 4)
//	history.transaction("Stack crates", function()
//	    level.move(id, 3, 5)
//	    level.set(id, "stacked", "true")
//	end)
//	history.undo()
//
// history.push records a Lua function and a value. When the record is
// replayed the function is called with the value, and is expected to push
// its own reverse:
//
//	local function set_score(v)
//	    local old = score
//	    score = v
//	    history.push(set_score, old, "Set score")
//	end
//
// An Engine stays bound to its session for the session's lifetime because
// recorded Lua functions are called again on undo and redo.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/mapforge/internal/config"
	"github.com/dshills/mapforge/internal/editor"
	"github.com/dshills/mapforge/internal/logging"
)

// Default limits for script execution.
const (
	DefaultTimeout   = 5 * time.Second
	DefaultCallLimit = 10_000_000
)

// Engine is a sandboxed Lua state bound to one session.
//
// gopher-lua's LState is not goroutine-safe. Every entry into the state
// happens with the session lock held: Run takes it through Session.Do, and
// replays of recorded Lua functions happen inside Session.Undo or
// Session.Redo.
type Engine struct {
	L *lua.LState

	session *editor.Session
	editor  *editor.Editor
	log     *logging.Logger

	timeout   time.Duration
	callLimit int64
	calls     int64
	limitHit  bool

	closed atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the deadline of a single run.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithCallLimit sets how many host functions a single run may call.
// Zero or less disables the limit.
func WithCallLimit(n int64) Option {
	return func(e *Engine) {
		e.callLimit = n
	}
}

// WithLogger sets the logger that also receives print output.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithConfig applies the script section of cfg.
func WithConfig(cfg config.ScriptConfig) Option {
	return func(e *Engine) {
		if cfg.Timeout.Duration > 0 {
			e.timeout = cfg.Timeout.Duration
		}
		e.callLimit = cfg.CallLimit
	}
}

// New creates an engine for s.
func New(s *editor.Session, opts ...Option) *Engine {
	e := &Engine{
		session:   s,
		log:       logging.Nop(),
		timeout:   DefaultTimeout,
		callLimit: DefaultCallLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithComponent("script")

	// The editor pointer is stable for the session's lifetime.
	_ = s.Do(func(ed *editor.Editor) error {
		e.editor = ed
		return nil
	})

	e.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(e.L)
	e.sandbox()
	e.L.SetGlobal("level", e.levelModule())
	e.L.SetGlobal("history", e.historyModule())
	return e
}

func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes loaders and routes print to the logger.
func (e *Engine) sandbox() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		e.L.SetGlobal(name, lua.LNil)
	}
	e.L.SetGlobal("print", e.L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		e.log.Info("%s", strings.Join(parts, "\t"))
		return 0
	}))
}

// Run executes code as a chunk named name with the session locked.
func (e *Engine) Run(ctx context.Context, name, code string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	return e.session.Do(func(*editor.Editor) error {
		e.calls = 0
		e.limitHit = false

		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		e.L.SetContext(ctx)
		defer e.L.RemoveContext()

		top := e.L.GetTop()
		defer e.L.SetTop(top)

		fn, err := e.L.Load(strings.NewReader(code), name)
		if err != nil {
			return &Error{Chunk: name, Err: err}
		}
		e.L.Push(fn)
		if err := e.L.PCall(0, lua.MultRet, nil); err != nil {
			return &Error{Chunk: name, Err: e.classify(ctx, err)}
		}
		e.log.Debug("ran %s in %d host call(s)", name, e.calls)
		return nil
	})
}

// RunFile executes the script at path.
func (e *Engine) RunFile(ctx context.Context, path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return &Error{Chunk: path, Err: err}
	}
	return e.Run(ctx, path, string(code))
}

// classify maps a Lua error to the engine's sentinel errors.
func (e *Engine) classify(ctx context.Context, err error) error {
	switch {
	case e.limitHit:
		return fmt.Errorf("%w: %v", ErrCallLimit, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return err
	}
}

// invoke calls a recorded Lua function. Outside a run it gets its own
// deadline.
func (e *Engine) invoke(fn *lua.LFunction, arg lua.LValue) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if e.L.Context() == nil {
		e.calls = 0
		e.limitHit = false
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		e.L.SetContext(ctx)
		defer e.L.RemoveContext()
	}
	return e.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, arg)
}

// tick counts a host call and raises a Lua error once the budget is spent.
func (e *Engine) tick(L *lua.LState) {
	if e.callLimit <= 0 {
		return
	}
	e.calls++
	if e.calls > e.callLimit {
		e.limitHit = true
		L.RaiseError("%s", ErrCallLimit.Error())
	}
}

// Close releases the Lua state. Recorded Lua functions still on the
// session's stacks fail with ErrEngineClosed when replayed.
func (e *Engine) Close() {
	if e.closed.Swap(true) {
		return
	}
	_ = e.session.Do(func(*editor.Editor) error {
		e.L.Close()
		return nil
	})
}

// IsClosed returns true after Close.
func (e *Engine) IsClosed() bool {
	return e.closed.Load()
}
