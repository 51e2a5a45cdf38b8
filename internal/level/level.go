// Package level provides the map model edited by mapforge.
//
// A Level is an ordered collection of items. Every mutating method returns
// the value it replaced so callers can record how to reverse the change.
// Items are handed out as copies; the Level owns its state.
package level

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/text/unicode/norm"
)

// Errors for level operations.
var (
	ErrItemNotFound  = errors.New("item not found")
	ErrDuplicateItem = errors.New("item already exists")
	ErrInvalidSize   = errors.New("size must be positive")
	ErrInvalidColor  = errors.New("invalid color")
	ErrInvalidNumber = errors.New("value must be a finite number")
)

// Vec2 is a 2D vector in level units.
type Vec2 struct {
	X float64
	Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) finite() bool {
	return finite(v.X) && finite(v.Y)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Item is a placed object on the level.
type Item struct {
	ID         uuid.UUID
	Name       string
	Position   Vec2
	Size       Vec2
	Rotation   float64 // Degrees in [0, 360)
	Texture    string
	Tint       string // "#rrggbb", empty for none
	Properties map[string]string
}

// NewItem creates an item with a fresh ID and unit size.
func NewItem(name string, pos Vec2) Item {
	return Item{
		ID:       uuid.New(),
		Name:     name,
		Position: pos,
		Size:     Vec2{X: 1, Y: 1},
	}
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	it.Properties = maps.Clone(it.Properties)
	return it
}

// Level is an ordered set of items. Index 0 is drawn first.
type Level struct {
	Name  string
	items map[uuid.UUID]*Item
	order []uuid.UUID
}

// New creates an empty level.
func New(name string) *Level {
	return &Level{
		Name:  name,
		items: make(map[uuid.UUID]*Item),
	}
}

// Len returns the number of items.
func (l *Level) Len() int {
	return len(l.order)
}

// Item returns a copy of the item with the given ID.
func (l *Level) Item(id uuid.UUID) (Item, bool) {
	it, ok := l.items[id]
	if !ok {
		return Item{}, false
	}
	return it.Clone(), true
}

// Items returns copies of all items in order.
func (l *Level) Items() []Item {
	result := make([]Item, len(l.order))
	for i, id := range l.order {
		result[i] = l.items[id].Clone()
	}
	return result
}

// IndexOf returns the position of the item, or -1.
func (l *Level) IndexOf(id uuid.UUID) int {
	return slices.Index(l.order, id)
}

// Add inserts item at index. An index outside [0, Len()] appends.
// An item with a nil ID is given a fresh one; the stored ID is returned.
func (l *Level) Add(item Item, index int) (uuid.UUID, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if _, exists := l.items[item.ID]; exists {
		return uuid.Nil, ErrDuplicateItem
	}
	if !item.Position.finite() || !item.Size.finite() || !finite(item.Rotation) {
		return uuid.Nil, ErrInvalidNumber
	}
	if item.Size.X <= 0 || item.Size.Y <= 0 {
		return uuid.Nil, ErrInvalidSize
	}

	stored := item.Clone()
	stored.Name = norm.NFC.String(stored.Name)
	stored.Properties = normalizeKeys(stored.Properties)
	stored.Rotation = normalizeAngle(stored.Rotation)
	if stored.Tint != "" {
		tint, err := normalizeColor(stored.Tint)
		if err != nil {
			return uuid.Nil, err
		}
		stored.Tint = tint
	}
	l.items[stored.ID] = &stored

	if index < 0 || index > len(l.order) {
		index = len(l.order)
	}
	l.order = slices.Insert(l.order, index, stored.ID)
	return stored.ID, nil
}

// normalizeKeys returns props with NFC keys. When two keys normalise to
// the same form, the one already in NFC wins.
func normalizeKeys(props map[string]string) map[string]string {
	if len(props) == 0 {
		return props
	}
	out := make(map[string]string, len(props))
	for k, v := range props {
		nk := norm.NFC.String(k)
		if _, dup := out[nk]; dup && nk != k {
			continue
		}
		out[nk] = v
	}
	return out
}

// Remove deletes the item and returns it with the index it occupied.
func (l *Level) Remove(id uuid.UUID) (Item, int, error) {
	it, ok := l.items[id]
	if !ok {
		return Item{}, -1, ErrItemNotFound
	}
	index := l.IndexOf(id)
	delete(l.items, id)
	l.order = slices.Delete(l.order, index, index+1)
	return *it, index, nil
}

// Move sets the item position and returns the previous one.
func (l *Level) Move(id uuid.UUID, pos Vec2) (Vec2, error) {
	it, ok := l.items[id]
	if !ok {
		return Vec2{}, ErrItemNotFound
	}
	if !pos.finite() {
		return Vec2{}, ErrInvalidNumber
	}
	old := it.Position
	it.Position = pos
	return old, nil
}

// Resize sets the item size and returns the previous one.
func (l *Level) Resize(id uuid.UUID, size Vec2) (Vec2, error) {
	it, ok := l.items[id]
	if !ok {
		return Vec2{}, ErrItemNotFound
	}
	if !size.finite() {
		return Vec2{}, ErrInvalidNumber
	}
	if size.X <= 0 || size.Y <= 0 {
		return Vec2{}, ErrInvalidSize
	}
	old := it.Size
	it.Size = size
	return old, nil
}

// Rotate sets the item rotation in degrees and returns the previous one.
func (l *Level) Rotate(id uuid.UUID, degrees float64) (float64, error) {
	it, ok := l.items[id]
	if !ok {
		return 0, ErrItemNotFound
	}
	if !finite(degrees) {
		return 0, ErrInvalidNumber
	}
	old := it.Rotation
	it.Rotation = normalizeAngle(degrees)
	return old, nil
}

// SetTexture sets the item texture and returns the previous one.
func (l *Level) SetTexture(id uuid.UUID, texture string) (string, error) {
	it, ok := l.items[id]
	if !ok {
		return "", ErrItemNotFound
	}
	old := it.Texture
	it.Texture = texture
	return old, nil
}

// SetTint sets the item tint and returns the previous one. "#rgb" and
// "#rrggbb" are accepted and stored as lowercase "#rrggbb"; empty clears it.
func (l *Level) SetTint(id uuid.UUID, color string) (string, error) {
	it, ok := l.items[id]
	if !ok {
		return "", ErrItemNotFound
	}
	if color != "" {
		var err error
		if color, err = normalizeColor(color); err != nil {
			return "", err
		}
	}
	old := it.Tint
	it.Tint = color
	return old, nil
}

// SetProperty sets a property and returns the previous value and whether
// it was present. Keys are compared in Unicode NFC form.
func (l *Level) SetProperty(id uuid.UUID, key, value string) (string, bool, error) {
	it, ok := l.items[id]
	if !ok {
		return "", false, ErrItemNotFound
	}
	key = norm.NFC.String(key)
	if it.Properties == nil {
		it.Properties = make(map[string]string)
	}
	old, had := it.Properties[key]
	it.Properties[key] = value
	return old, had, nil
}

// DeleteProperty removes a property and returns the previous value and
// whether it was present.
func (l *Level) DeleteProperty(id uuid.UUID, key string) (string, bool, error) {
	it, ok := l.items[id]
	if !ok {
		return "", false, ErrItemNotFound
	}
	key = norm.NFC.String(key)
	old, had := it.Properties[key]
	delete(it.Properties, key)
	return old, had, nil
}

func normalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func normalizeColor(s string) (string, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return c.Hex(), nil
}
