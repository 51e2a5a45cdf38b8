package script

import (
	"errors"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/mapforge/internal/history"
	"github.com/dshills/mapforge/internal/level"
)

// levelModule exposes item editing. Every edit goes through the editor and
// is recorded in history.
func (e *Engine) levelModule() *lua.LTable {
	return e.L.SetFuncs(e.L.NewTable(), map[string]lua.LGFunction{
		"add":       e.levelAdd,
		"remove":    e.levelRemove,
		"move":      e.levelMove,
		"translate": e.levelTranslate,
		"resize":    e.levelResize,
		"rotate":    e.levelRotate,
		"texture":   e.levelTexture,
		"tint":      e.levelTint,
		"set":       e.levelSet,
		"get":       e.levelGet,
		"count":     e.levelCount,
		"items":     e.levelItems,
	})
}

// historyModule exposes the undo history.
func (e *Engine) historyModule() *lua.LTable {
	return e.L.SetFuncs(e.L.NewTable(), map[string]lua.LGFunction{
		"undo":          e.historyUndo,
		"redo":          e.historyRedo,
		"clear":         e.historyClear,
		"transaction":   e.historyTransaction,
		"push":          e.historyPush,
		"undo_count":    e.historyUndoCount,
		"redo_count":    e.historyRedoCount,
		"undo_info":     e.historyUndoInfo,
		"redo_info":     e.historyRedoInfo,
		"max_items":     e.historyMaxItems,
		"set_max_items": e.historySetMaxItems,
	})
}

// check raises err as a Lua error.
func check(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}

func checkID(L *lua.LState, n int) uuid.UUID {
	id, err := uuid.Parse(L.CheckString(n))
	if err != nil {
		L.ArgError(n, "invalid item id")
	}
	return id
}

func checkVec(L *lua.LState, n int) level.Vec2 {
	return level.Vec2{X: float64(L.CheckNumber(n)), Y: float64(L.CheckNumber(n + 1))}
}

// level.add(name, x, y [, w, h [, index]]) -> id
func (e *Engine) levelAdd(L *lua.LState) int {
	e.tick(L)
	item := level.NewItem(L.CheckString(1), checkVec(L, 2))
	if L.GetTop() >= 4 {
		item.Size = checkVec(L, 4)
	}
	// Lua indices are 1-based; 0 appends.
	index := int(L.OptNumber(6, 0)) - 1
	id, err := e.editor.AddItem(item, index)
	check(L, err)
	L.Push(lua.LString(id.String()))
	return 1
}

// level.remove(id)
func (e *Engine) levelRemove(L *lua.LState) int {
	e.tick(L)
	_, err := e.editor.RemoveItem(checkID(L, 1))
	check(L, err)
	return 0
}

// level.move(id, x, y)
func (e *Engine) levelMove(L *lua.LState) int {
	e.tick(L)
	check(L, e.editor.MoveItem(checkID(L, 1), checkVec(L, 2)))
	return 0
}

// level.translate(id, dx, dy)
func (e *Engine) levelTranslate(L *lua.LState) int {
	e.tick(L)
	check(L, e.editor.TranslateItem(checkID(L, 1), checkVec(L, 2)))
	return 0
}

// level.resize(id, w, h)
func (e *Engine) levelResize(L *lua.LState) int {
	e.tick(L)
	check(L, e.editor.ResizeItem(checkID(L, 1), checkVec(L, 2)))
	return 0
}

// level.rotate(id, degrees)
func (e *Engine) levelRotate(L *lua.LState) int {
	e.tick(L)
	check(L, e.editor.RotateItem(checkID(L, 1), float64(L.CheckNumber(2))))
	return 0
}

// level.texture(id, name)
func (e *Engine) levelTexture(L *lua.LState) int {
	e.tick(L)
	check(L, e.editor.SetTexture(checkID(L, 1), L.CheckString(2)))
	return 0
}

// level.tint(id, "#rrggbb"). An empty string clears the tint.
func (e *Engine) levelTint(L *lua.LState) int {
	e.tick(L)
	check(L, e.editor.SetTint(checkID(L, 1), L.OptString(2, "")))
	return 0
}

// level.set(id, key, value). A nil value deletes the property.
func (e *Engine) levelSet(L *lua.LState) int {
	e.tick(L)
	id := checkID(L, 1)
	key := L.CheckString(2)
	if L.Get(3) == lua.LNil {
		check(L, e.editor.DeleteProperty(id, key))
		return 0
	}
	check(L, e.editor.SetProperty(id, key, L.CheckString(3)))
	return 0
}

// level.get(id) -> table or nil
func (e *Engine) levelGet(L *lua.LState) int {
	e.tick(L)
	it, ok := e.editor.Level().Item(checkID(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(itemTable(L, it))
	return 1
}

func itemTable(L *lua.LState, it level.Item) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(it.ID.String()))
	t.RawSetString("name", lua.LString(it.Name))
	t.RawSetString("x", lua.LNumber(it.Position.X))
	t.RawSetString("y", lua.LNumber(it.Position.Y))
	t.RawSetString("w", lua.LNumber(it.Size.X))
	t.RawSetString("h", lua.LNumber(it.Size.Y))
	t.RawSetString("rotation", lua.LNumber(it.Rotation))
	t.RawSetString("texture", lua.LString(it.Texture))
	t.RawSetString("tint", lua.LString(it.Tint))
	props := L.NewTable()
	for k, v := range it.Properties {
		props.RawSetString(k, lua.LString(v))
	}
	t.RawSetString("properties", props)
	return t
}

// level.count() -> n
func (e *Engine) levelCount(L *lua.LState) int {
	e.tick(L)
	L.Push(lua.LNumber(e.editor.Level().Len()))
	return 1
}

// level.items() -> {id, ...} in draw order
func (e *Engine) levelItems(L *lua.LState) int {
	e.tick(L)
	t := L.NewTable()
	for i, it := range e.editor.Level().Items() {
		t.RawSetInt(i+1, lua.LString(it.ID.String()))
	}
	L.Push(t)
	return 1
}

// history.undo() -> bool
func (e *Engine) historyUndo(L *lua.LState) int {
	e.tick(L)
	L.Push(lua.LBool(e.editor.Undo()))
	return 1
}

// history.redo() -> bool
func (e *Engine) historyRedo(L *lua.LState) int {
	e.tick(L)
	L.Push(lua.LBool(e.editor.Redo()))
	return 1
}

// history.clear()
func (e *Engine) historyClear(L *lua.LState) int {
	e.tick(L)
	e.editor.ClearHistory()
	return 0
}

// history.transaction(name, fn). Errors raised by fn propagate after the
// transaction is closed.
func (e *Engine) historyTransaction(L *lua.LState) int {
	e.tick(L)
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	err := e.editor.Transaction(name, func() error {
		return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	})
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		// Rethrow the original value so pcall in the script sees it.
		L.Error(apiErr.Object, 0)
	}
	check(L, err)
	return 0
}

// history.push(fn, value [, description])
func (e *Engine) historyPush(L *lua.LState) int {
	e.tick(L)
	fn := L.CheckFunction(1)
	value := L.Get(2)
	desc := L.OptString(3, "")
	history.Push(e.editor.History(), func(v lua.LValue) error {
		return e.invoke(fn, v)
	}, value, desc)
	return 0
}

// history.undo_count() -> n
func (e *Engine) historyUndoCount(L *lua.LState) int {
	e.tick(L)
	L.Push(lua.LNumber(e.editor.History().UndoCount()))
	return 1
}

// history.redo_count() -> n
func (e *Engine) historyRedoCount(L *lua.LState) int {
	e.tick(L)
	L.Push(lua.LNumber(e.editor.History().RedoCount()))
	return 1
}

// history.undo_info() -> {description, ...} top first
func (e *Engine) historyUndoInfo(L *lua.LState) int {
	e.tick(L)
	L.Push(stringList(L, e.editor.History().UndoStackInformation()))
	return 1
}

// history.redo_info() -> {description, ...} top first
func (e *Engine) historyRedoInfo(L *lua.LState) int {
	e.tick(L)
	L.Push(stringList(L, e.editor.History().RedoStackInformation()))
	return 1
}

func stringList(L *lua.LState, items []string) *lua.LTable {
	t := L.CreateTable(len(items), 0)
	for i, s := range items {
		t.RawSetInt(i+1, lua.LString(s))
	}
	return t
}

// history.max_items() -> n
func (e *Engine) historyMaxItems(L *lua.LState) int {
	e.tick(L)
	L.Push(lua.LNumber(e.editor.History().MaxItems()))
	return 1
}

// history.set_max_items(n)
func (e *Engine) historySetMaxItems(L *lua.LState) int {
	e.tick(L)
	check(L, e.editor.History().SetMaxItems(L.CheckInt(1)))
	return 0
}
