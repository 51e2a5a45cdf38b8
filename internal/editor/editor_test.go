package editor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/dshills/mapforge/internal/history"
	"github.com/dshills/mapforge/internal/level"
)

func newTestEditor(t *testing.T, maxItems int) *Editor {
	t.Helper()
	h, err := history.New(history.WithMaxItems(maxItems))
	if err != nil {
		t.Fatalf("history.New() error = %v", err)
	}
	return New(level.New("test"), h, nil)
}

func mustAdd(t *testing.T, e *Editor, name string, pos level.Vec2) uuid.UUID {
	t.Helper()
	id, err := e.AddItem(level.NewItem(name, pos), -1)
	if err != nil {
		t.Fatalf("AddItem(%q) error = %v", name, err)
	}
	return id
}

func position(t *testing.T, e *Editor, id uuid.UUID) level.Vec2 {
	t.Helper()
	it, ok := e.Level().Item(id)
	if !ok {
		t.Fatalf("item %s not found", id)
	}
	return it.Position
}

func TestAddUndoRedo(t *testing.T) {
	e := newTestEditor(t, 10)
	id := mustAdd(t, e, "crate", level.Vec2{X: 1, Y: 2})

	if diff := cmp.Diff([]string{"Add crate"}, e.History().UndoStackInformation()); diff != "" {
		t.Errorf("undo stack mismatch (-want +got):\n%s", diff)
	}

	if !e.Undo() {
		t.Fatal("Undo() = false")
	}
	if e.Level().Len() != 0 {
		t.Errorf("Len() after undo = %d, want 0", e.Level().Len())
	}
	if diff := cmp.Diff([]string{"Remove crate"}, e.History().RedoStackInformation()); diff != "" {
		t.Errorf("redo stack mismatch (-want +got):\n%s", diff)
	}

	if !e.Redo() {
		t.Fatal("Redo() = false")
	}
	if _, ok := e.Level().Item(id); !ok {
		t.Error("item missing after redo; IDs must survive undo/redo")
	}
	if e.History().UndoCount() != 1 || e.History().RedoCount() != 0 {
		t.Errorf("counts = %d/%d, want 1/0", e.History().UndoCount(), e.History().RedoCount())
	}
}

func TestRemoveRestoresIndex(t *testing.T) {
	e := newTestEditor(t, 10)
	a := mustAdd(t, e, "a", level.Vec2{})
	b := mustAdd(t, e, "b", level.Vec2{})
	c := mustAdd(t, e, "c", level.Vec2{})
	if err := e.SetProperty(b, "solid", "true"); err != nil {
		t.Fatal(err)
	}

	if _, err := e.RemoveItem(b); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	e.Undo()

	ids := []uuid.UUID{}
	for _, it := range e.Level().Items() {
		ids = append(ids, it.ID)
	}
	if diff := cmp.Diff([]uuid.UUID{a, b, c}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	it, _ := e.Level().Item(b)
	if it.Properties["solid"] != "true" {
		t.Errorf("properties not restored: %v", it.Properties)
	}
}

func TestMoveUndoRedoCycle(t *testing.T) {
	e := newTestEditor(t, 10)
	id := mustAdd(t, e, "crate", level.Vec2{X: 0, Y: 0})

	for i := 1; i <= 3; i++ {
		if err := e.MoveItem(id, level.Vec2{X: float64(i), Y: 0}); err != nil {
			t.Fatal(err)
		}
	}

	e.Undo()
	e.Undo()
	if got := position(t, e, id); got != (level.Vec2{X: 1}) {
		t.Errorf("position after 2 undos = %v", got)
	}
	e.Redo()
	if got := position(t, e, id); got != (level.Vec2{X: 2}) {
		t.Errorf("position after redo = %v", got)
	}

	// A fresh edit discards the remaining redo.
	if err := e.TranslateItem(id, level.Vec2{Y: 5}); err != nil {
		t.Fatal(err)
	}
	if e.History().HasRedo() {
		t.Error("redo stack not cleared by a new edit")
	}
	if got := position(t, e, id); got != (level.Vec2{X: 2, Y: 5}) {
		t.Errorf("position after translate = %v", got)
	}
}

func TestPropertyUndo(t *testing.T) {
	e := newTestEditor(t, 10)
	id := mustAdd(t, e, "door", level.Vec2{})

	if err := e.SetProperty(id, "locked", "yes"); err != nil {
		t.Fatal(err)
	}
	if err := e.SetProperty(id, "locked", "no"); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteProperty(id, "locked"); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteProperty(id, "missing"); err != nil {
		t.Fatal(err)
	}
	// Add plus three property edits; deleting a missing key records nothing.
	if e.History().UndoCount() != 4 {
		t.Fatalf("UndoCount() = %d, want 4", e.History().UndoCount())
	}

	props := func() map[string]string {
		it, _ := e.Level().Item(id)
		return it.Properties
	}

	e.Undo()
	if props()["locked"] != "no" {
		t.Errorf("after undo delete: %v", props())
	}
	e.Undo()
	if props()["locked"] != "yes" {
		t.Errorf("after undo second set: %v", props())
	}
	e.Undo()
	if _, ok := props()["locked"]; ok {
		t.Errorf("after undo first set: %v", props())
	}

	e.Redo()
	e.Redo()
	e.Redo()
	if _, ok := props()["locked"]; ok {
		t.Errorf("after redo all: %v", props())
	}
}

func TestResizeRotateTexture(t *testing.T) {
	e := newTestEditor(t, 10)
	id := mustAdd(t, e, "tree", level.Vec2{})

	if err := e.ResizeItem(id, level.Vec2{X: 2, Y: 3}); err != nil {
		t.Fatal(err)
	}
	if err := e.RotateItem(id, 450); err != nil {
		t.Fatal(err)
	}
	if err := e.SetTexture(id, "oak.png"); err != nil {
		t.Fatal(err)
	}
	if err := e.ResizeItem(id, level.Vec2{X: 0, Y: 1}); !errors.Is(err, level.ErrInvalidSize) {
		t.Errorf("ResizeItem(zero) error = %v", err)
	}

	it, _ := e.Level().Item(id)
	if it.Rotation != 90 || it.Texture != "oak.png" || it.Size != (level.Vec2{X: 2, Y: 3}) {
		t.Fatalf("item = %+v", it)
	}

	e.Undo()
	e.Undo()
	e.Undo()
	it, _ = e.Level().Item(id)
	want := level.NewItem("tree", level.Vec2{})
	want.ID = id
	if diff := cmp.Diff(want, it); diff != "" {
		t.Errorf("item after undo mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedEditRecordsNothing(t *testing.T) {
	e := newTestEditor(t, 10)
	if err := e.MoveItem(uuid.New(), level.Vec2{}); !errors.Is(err, level.ErrItemNotFound) {
		t.Errorf("MoveItem(unknown) error = %v", err)
	}
	if _, err := e.RemoveItem(uuid.New()); !errors.Is(err, level.ErrItemNotFound) {
		t.Errorf("RemoveItem(unknown) error = %v", err)
	}
	if e.History().HasUndo() {
		t.Error("failed edits were recorded")
	}
}

func TestTransactionUndoesAsOneStep(t *testing.T) {
	e := newTestEditor(t, 10)
	a := mustAdd(t, e, "a", level.Vec2{})
	b := mustAdd(t, e, "b", level.Vec2{X: 1})

	err := e.Transaction("Align", func() error {
		if err := e.MoveItem(a, level.Vec2{Y: 10}); err != nil {
			return err
		}
		return e.MoveItem(b, level.Vec2{X: 1, Y: 10})
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Align", "Add b", "Add a"}, e.History().UndoStackInformation()); diff != "" {
		t.Errorf("undo stack mismatch (-want +got):\n%s", diff)
	}

	e.Undo()
	if position(t, e, a) != (level.Vec2{}) || position(t, e, b) != (level.Vec2{X: 1}) {
		t.Errorf("positions after undo: %v %v", position(t, e, a), position(t, e, b))
	}
	if diff := cmp.Diff([]string{"Align"}, e.History().RedoStackInformation()); diff != "" {
		t.Errorf("redo stack mismatch (-want +got):\n%s", diff)
	}

	e.Redo()
	if position(t, e, a) != (level.Vec2{Y: 10}) || position(t, e, b) != (level.Vec2{X: 1, Y: 10}) {
		t.Errorf("positions after redo: %v %v", position(t, e, a), position(t, e, b))
	}
	if diff := cmp.Diff([]string{"Align", "Add b", "Add a"}, e.History().UndoStackInformation()); diff != "" {
		t.Errorf("undo stack after redo mismatch (-want +got):\n%s", diff)
	}
}

func TestTransactionErrorStillCloses(t *testing.T) {
	e := newTestEditor(t, 10)
	id := mustAdd(t, e, "a", level.Vec2{})
	boom := errors.New("boom")

	err := e.Transaction("Broken", func() error {
		_ = e.MoveItem(id, level.Vec2{X: 3})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v", err)
	}
	if e.History().InTransaction() {
		t.Fatal("transaction left open")
	}

	e.Undo()
	if position(t, e, id) != (level.Vec2{}) {
		t.Errorf("position after undo = %v", position(t, e, id))
	}
}

func TestEmptyTransactionLeavesNoTrace(t *testing.T) {
	e := newTestEditor(t, 10)
	mustAdd(t, e, "a", level.Vec2{})
	if err := e.Transaction("Nothing", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if e.History().UndoCount() != 1 || e.History().RedoCount() != 0 {
		t.Errorf("counts = %d/%d, want 1/0", e.History().UndoCount(), e.History().RedoCount())
	}
}

func TestCapacityEviction(t *testing.T) {
	e := newTestEditor(t, 3)
	id := mustAdd(t, e, "a", level.Vec2{})
	for i := 1; i <= 5; i++ {
		if err := e.MoveItem(id, level.Vec2{X: float64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if e.History().UndoCount() != 3 {
		t.Fatalf("UndoCount() = %d, want 3", e.History().UndoCount())
	}
	for e.Undo() {
	}
	// Only the three newest moves can be undone.
	if got := position(t, e, id); got != (level.Vec2{X: 2}) {
		t.Errorf("position after undoing everything = %v, want {2 0}", got)
	}
}

func TestClearHistory(t *testing.T) {
	e := newTestEditor(t, 10)
	mustAdd(t, e, "a", level.Vec2{})
	e.Undo()
	mustAdd(t, e, "b", level.Vec2{})
	e.ClearHistory()
	if e.History().HasUndo() || e.History().HasRedo() {
		t.Error("history not cleared")
	}
	if e.Level().Len() != 1 {
		t.Errorf("Len() = %d, level must be untouched", e.Level().Len())
	}
}

func TestTintUndo(t *testing.T) {
	e := newTestEditor(t, 10)
	id := mustAdd(t, e, "lamp", level.Vec2{})

	if err := e.SetTint(id, "#F80"); err != nil {
		t.Fatal(err)
	}
	if err := e.SetTint(id, "plaid"); !errors.Is(err, level.ErrInvalidColor) {
		t.Errorf("SetTint(invalid) error = %v", err)
	}
	if top, _ := e.History().PeekUndo(); top.Description != "Tint lamp" {
		t.Errorf("top of undo = %q", top.Description)
	}

	e.Undo()
	if it, _ := e.Level().Item(id); it.Tint != "" {
		t.Errorf("Tint after undo = %q", it.Tint)
	}
	e.Redo()
	if it, _ := e.Level().Item(id); it.Tint != "#ff8800" {
		t.Errorf("Tint after redo = %q", it.Tint)
	}
}
