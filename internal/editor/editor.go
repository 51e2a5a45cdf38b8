// Package editor binds a level to its undo history.
//
// Every mutating Editor method applies a change to the level and records
// the reverse change on the history manager. The reverse is expressed as a
// call to another Editor method, so replaying it records the mirror
// operation on the opposite stack without any extra bookkeeping.
//
// Editor is not safe for concurrent use. Session wraps an Editor with a
// mutex for hosts that drive it from several goroutines.
package editor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/mapforge/internal/history"
	"github.com/dshills/mapforge/internal/level"
	"github.com/dshills/mapforge/internal/logging"
)

// Editor edits one level and keeps its undo history.
type Editor struct {
	level   *level.Level
	history *history.Manager
	log     *logging.Logger
}

// New creates an editor for lvl using h for undo history.
func New(lvl *level.Level, h *history.Manager, log *logging.Logger) *Editor {
	if log == nil {
		log = logging.Nop()
	}
	return &Editor{
		level:   lvl,
		history: h,
		log:     log.WithComponent("editor"),
	}
}

// Level returns the edited level. Mutating it directly bypasses history.
func (e *Editor) Level() *level.Level {
	return e.level
}

// History returns the undo history.
func (e *Editor) History() *history.Manager {
	return e.history
}

type placement struct {
	item  level.Item
	index int
}

type vecChange struct {
	id  uuid.UUID
	vec level.Vec2
}

type rotation struct {
	id      uuid.UUID
	degrees float64
}

type textChange struct {
	id    uuid.UUID
	key   string
	value string
}

// AddItem inserts item at index and returns its ID.
func (e *Editor) AddItem(item level.Item, index int) (uuid.UUID, error) {
	id, err := e.level.Add(item, index)
	if err != nil {
		return uuid.Nil, err
	}
	history.Push(e.history, func(id uuid.UUID) error {
		_, err := e.RemoveItem(id)
		return err
	}, id, "Add "+e.label(id))
	return id, nil
}

// RemoveItem deletes an item and returns it.
func (e *Editor) RemoveItem(id uuid.UUID) (level.Item, error) {
	label := e.label(id)
	it, index, err := e.level.Remove(id)
	if err != nil {
		return level.Item{}, err
	}
	history.Push(e.history, func(p placement) error {
		_, err := e.AddItem(p.item, p.index)
		return err
	}, placement{item: it, index: index}, "Remove "+label)
	return it, nil
}

// MoveItem sets an item's position.
func (e *Editor) MoveItem(id uuid.UUID, pos level.Vec2) error {
	old, err := e.level.Move(id, pos)
	if err != nil {
		return err
	}
	history.Push(e.history, func(c vecChange) error {
		return e.MoveItem(c.id, c.vec)
	}, vecChange{id: id, vec: old}, "Move "+e.label(id))
	return nil
}

// TranslateItem moves an item by delta.
func (e *Editor) TranslateItem(id uuid.UUID, delta level.Vec2) error {
	it, ok := e.level.Item(id)
	if !ok {
		return level.ErrItemNotFound
	}
	return e.MoveItem(id, it.Position.Add(delta))
}

// ResizeItem sets an item's size.
func (e *Editor) ResizeItem(id uuid.UUID, size level.Vec2) error {
	old, err := e.level.Resize(id, size)
	if err != nil {
		return err
	}
	history.Push(e.history, func(c vecChange) error {
		return e.ResizeItem(c.id, c.vec)
	}, vecChange{id: id, vec: old}, "Resize "+e.label(id))
	return nil
}

// RotateItem sets an item's rotation in degrees.
func (e *Editor) RotateItem(id uuid.UUID, degrees float64) error {
	old, err := e.level.Rotate(id, degrees)
	if err != nil {
		return err
	}
	history.Push(e.history, func(r rotation) error {
		return e.RotateItem(r.id, r.degrees)
	}, rotation{id: id, degrees: old}, "Rotate "+e.label(id))
	return nil
}

// SetTexture sets an item's texture.
func (e *Editor) SetTexture(id uuid.UUID, texture string) error {
	old, err := e.level.SetTexture(id, texture)
	if err != nil {
		return err
	}
	history.Push(e.history, func(c textChange) error {
		return e.SetTexture(c.id, c.value)
	}, textChange{id: id, value: old}, "Set texture of "+e.label(id))
	return nil
}

// SetTint sets an item's tint color. Empty clears it.
func (e *Editor) SetTint(id uuid.UUID, color string) error {
	old, err := e.level.SetTint(id, color)
	if err != nil {
		return err
	}
	history.Push(e.history, func(c textChange) error {
		return e.SetTint(c.id, c.value)
	}, textChange{id: id, value: old}, "Tint "+e.label(id))
	return nil
}

// SetProperty sets a custom property on an item.
func (e *Editor) SetProperty(id uuid.UUID, key, value string) error {
	old, had, err := e.level.SetProperty(id, key, value)
	if err != nil {
		return err
	}
	desc := fmt.Sprintf("Set %s of %s", key, e.label(id))
	if had {
		history.Push(e.history, func(c textChange) error {
			return e.SetProperty(c.id, c.key, c.value)
		}, textChange{id: id, key: key, value: old}, desc)
	} else {
		history.Push(e.history, func(c textChange) error {
			return e.DeleteProperty(c.id, c.key)
		}, textChange{id: id, key: key}, desc)
	}
	return nil
}

// DeleteProperty removes a custom property from an item. Deleting an
// absent property succeeds and records nothing.
func (e *Editor) DeleteProperty(id uuid.UUID, key string) error {
	old, had, err := e.level.DeleteProperty(id, key)
	if err != nil || !had {
		return err
	}
	history.Push(e.history, func(c textChange) error {
		return e.SetProperty(c.id, c.key, c.value)
	}, textChange{id: id, key: key, value: old}, fmt.Sprintf("Delete %s of %s", key, e.label(id)))
	return nil
}

// Transaction runs fn so that all edits it makes undo and redo as one step.
// The edits fn made before returning an error stay applied and recorded.
func (e *Editor) Transaction(name string, fn func() error) error {
	return e.history.WithTransaction(name, fn)
}

// Undo reverts the most recent edit. It returns false if nothing was undone.
func (e *Editor) Undo() bool {
	return e.history.Undo()
}

// Redo reapplies the most recently undone edit.
func (e *Editor) Redo() bool {
	return e.history.Redo()
}

// ClearHistory forgets all undo and redo records. The level is unchanged.
func (e *Editor) ClearHistory() {
	e.history.Clear()
	e.log.Debug("history cleared")
}

// label names an item for history descriptions.
func (e *Editor) label(id uuid.UUID) string {
	if it, ok := e.level.Item(id); ok && it.Name != "" {
		return it.Name
	}
	return "item"
}
