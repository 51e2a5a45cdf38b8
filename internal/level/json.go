package level

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// ErrInvalidDocument is returned by Unmarshal for malformed input.
var ErrInvalidDocument = errors.New("invalid level document")

// Marshal encodes l as indented JSON:
//
//	{
//	  "name": "castle",
//	  "items": [
//	    {"id": "...", "name": "crate", "position": {"x": 1, "y": 2}, ...}
//	  ]
//	}
func Marshal(l *Level) ([]byte, error) {
	doc, err := sjson.SetBytes([]byte(`{}`), "name", l.Name)
	if err != nil {
		return nil, err
	}
	if doc, err = sjson.SetRawBytes(doc, "items", []byte(`[]`)); err != nil {
		return nil, err
	}

	for _, it := range l.Items() {
		obj, err := marshalItem(it)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, err)
		}
		if doc, err = sjson.SetRawBytes(doc, "items.-1", obj); err != nil {
			return nil, err
		}
	}
	return pretty.Pretty(doc), nil
}

func marshalItem(it Item) ([]byte, error) {
	fields := []struct {
		path  string
		value any
	}{
		{"id", it.ID.String()},
		{"name", it.Name},
		{"position.x", it.Position.X},
		{"position.y", it.Position.Y},
		{"size.x", it.Size.X},
		{"size.y", it.Size.Y},
		{"rotation", it.Rotation},
		{"texture", it.Texture},
		{"tint", it.Tint},
	}

	obj := []byte(`{}`)
	var err error
	for _, f := range fields {
		if obj, err = sjson.SetBytes(obj, f.path, f.value); err != nil {
			return nil, err
		}
	}
	props := it.Properties
	if props == nil {
		props = map[string]string{}
	}
	return sjson.SetBytes(obj, "properties", props)
}

// Unmarshal decodes a document written by Marshal. Items are validated as
// by Add.
func Unmarshal(data []byte) (*Level, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidDocument)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidDocument)
	}

	l := New(root.Get("name").String())
	items := root.Get("items")
	if items.Exists() && !items.IsArray() {
		return nil, fmt.Errorf("%w: items must be an array", ErrInvalidDocument)
	}

	for i, r := range items.Array() {
		it, err := unmarshalItem(r)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", ErrInvalidDocument, i, err)
		}
		if _, err := l.Add(it, -1); err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", ErrInvalidDocument, i, err)
		}
	}
	return l, nil
}

func unmarshalItem(r gjson.Result) (Item, error) {
	id, err := uuid.Parse(r.Get("id").String())
	if err != nil {
		return Item{}, err
	}

	it := Item{
		ID:       id,
		Name:     r.Get("name").String(),
		Position: Vec2{X: r.Get("position.x").Float(), Y: r.Get("position.y").Float()},
		Size:     Vec2{X: 1, Y: 1},
		Rotation: r.Get("rotation").Float(),
		Texture:  r.Get("texture").String(),
		Tint:     r.Get("tint").String(),
	}
	if size := r.Get("size"); size.Exists() {
		it.Size = Vec2{X: size.Get("x").Float(), Y: size.Get("y").Float()}
	}

	if props := r.Get("properties"); props.IsObject() {
		it.Properties = make(map[string]string)
		props.ForEach(func(k, v gjson.Result) bool {
			it.Properties[k.String()] = v.String()
			return true
		})
	}
	return it, nil
}
