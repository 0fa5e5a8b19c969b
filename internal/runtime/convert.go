package runtime

import (
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/treebridge"
)

// Conversions between bridge snapshots and Risor values. Snapshots become
// maps keyed by their snake_case field names; host maps coming back in are
// checked before they reach the engine.

func pointToObject(p treebridge.Point) *object.Map {
	return object.NewMap(map[string]object.Object{
		"row":    object.NewInt(int64(p.Row)),
		"column": object.NewInt(int64(p.Column)),
	})
}

func rangeToObject(r treebridge.Range) *object.Map {
	return object.NewMap(map[string]object.Object{
		"start_byte":  object.NewInt(int64(r.StartByte)),
		"end_byte":    object.NewInt(int64(r.EndByte)),
		"start_point": pointToObject(r.StartPoint),
		"end_point":   pointToObject(r.EndPoint),
	})
}

func nodeToObject(n treebridge.Node) *object.Map {
	var text object.Object = object.Nil
	if n.Text != nil {
		text = object.NewString(*n.Text)
	}
	return object.NewMap(map[string]object.Object{
		"id":          object.NewInt(int64(n.ID)),
		"text":        text,
		"range":       rangeToObject(n.Range),
		"kind":        object.NewString(n.Kind),
		"kind_id":     object.NewInt(int64(n.KindID)),
		"is_named":    object.NewBool(n.IsNamed),
		"is_extra":    object.NewBool(n.IsExtra),
		"has_changes": object.NewBool(n.HasChanges),
		"has_error":   object.NewBool(n.HasError),
		"is_error":    object.NewBool(n.IsError),
		"is_missing":  object.NewBool(n.IsMissing),
		"child_count": object.NewInt(int64(n.ChildCount)),
	})
}

func nodesToList(nodes []treebridge.Node) *object.List {
	items := make([]object.Object, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, nodeToObject(n))
	}
	return object.NewList(items)
}

func matchesToList(matches []treebridge.QueryMatch) *object.List {
	items := make([]object.Object, 0, len(matches))
	for _, m := range matches {
		caps := make([]object.Object, 0, len(m.Captures))
		for _, c := range m.Captures {
			caps = append(caps, object.NewMap(map[string]object.Object{
				"node":         nodeToObject(c.Node),
				"index":        object.NewInt(int64(c.Index)),
				"capture_name": object.NewString(c.CaptureName),
			}))
		}
		items = append(items, object.NewMap(map[string]object.Object{
			"pattern_index": object.NewInt(int64(m.PatternIndex)),
			"captures":      object.NewList(caps),
		}))
	}
	return object.NewList(items)
}

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

// getUint reads a required non-negative integer field.
func getUint(m map[string]object.Object, key string) (uint, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("missing %q", key)
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if i < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %d", key, i)
	}
	return uint(i), nil
}

func pointFromObject(obj object.Object) (treebridge.Point, error) {
	m, err := extractMap(obj)
	if err != nil {
		return treebridge.Point{}, err
	}
	row, err := getUint(m, "row")
	if err != nil {
		return treebridge.Point{}, err
	}
	col, err := getUint(m, "column")
	if err != nil {
		return treebridge.Point{}, err
	}
	return treebridge.Point{Row: row, Column: col}, nil
}

func getPoint(m map[string]object.Object, key string) (treebridge.Point, error) {
	v, ok := m[key]
	if !ok {
		return treebridge.Point{}, fmt.Errorf("missing %q", key)
	}
	p, err := pointFromObject(v)
	if err != nil {
		return treebridge.Point{}, fmt.Errorf("%s: %w", key, err)
	}
	return p, nil
}

func rangeFromObject(obj object.Object) (treebridge.Range, error) {
	var r treebridge.Range
	m, err := extractMap(obj)
	if err != nil {
		return r, err
	}
	if r.StartByte, err = getUint(m, "start_byte"); err != nil {
		return r, err
	}
	if r.EndByte, err = getUint(m, "end_byte"); err != nil {
		return r, err
	}
	if r.StartPoint, err = getPoint(m, "start_point"); err != nil {
		return r, err
	}
	if r.EndPoint, err = getPoint(m, "end_point"); err != nil {
		return r, err
	}
	return r, nil
}

func rangesFromObject(obj object.Object) ([]treebridge.Range, error) {
	list, ok := obj.(*object.List)
	if !ok {
		return nil, fmt.Errorf("expected list of ranges, got %s", obj.Type())
	}
	items := list.Value()
	ranges := make([]treebridge.Range, 0, len(items))
	for i, item := range items {
		r, err := rangeFromObject(item)
		if err != nil {
			return nil, fmt.Errorf("range %d: %w", i, err)
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func editFromObject(obj object.Object) (treebridge.InputEdit, error) {
	var e treebridge.InputEdit
	m, err := extractMap(obj)
	if err != nil {
		return e, err
	}
	if e.StartByte, err = getUint(m, "start_byte"); err != nil {
		return e, err
	}
	if e.OldEndByte, err = getUint(m, "old_end_byte"); err != nil {
		return e, err
	}
	if e.NewEndByte, err = getUint(m, "new_end_byte"); err != nil {
		return e, err
	}
	if e.StartPosition, err = getPoint(m, "start_position"); err != nil {
		return e, err
	}
	if e.OldEndPosition, err = getPoint(m, "old_end_position"); err != nil {
		return e, err
	}
	if e.NewEndPosition, err = getPoint(m, "new_end_position"); err != nil {
		return e, err
	}
	return e, nil
}

// toBytes accepts a Risor string or byte_slice.
func toBytes(obj object.Object) ([]byte, error) {
	switch v := obj.(type) {
	case *object.String:
		return []byte(v.Value()), nil
	case *object.ByteSlice:
		return v.Value(), nil
	default:
		return nil, fmt.Errorf("expected string or byte_slice, got %s", obj.Type())
	}
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

func isNil(obj object.Object) bool {
	_, ok := obj.(*object.NilType)
	return ok
}
