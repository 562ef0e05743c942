package command

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kobzarvs/qmap/internal/model"
)

var ErrBrushesOnly = errors.New("selection must consist of brushes only")

// Selection changes the set of selected nodes. It ends the current run of
// repeatable commands.
type Selection struct {
	m      *model.Map
	name   string
	apply  func(m *model.Map) error
	before []string
	after  []string
}

// NewSelect adds ids to the selection.
func NewSelect(m *model.Map, ids ...string) *Selection {
	ids = slices.Clone(ids)
	return &Selection{m: m, name: "Select Objects", apply: func(m *model.Map) error {
		return m.Select(ids...)
	}}
}

// NewReplaceSelection makes ids the whole selection.
func NewReplaceSelection(m *model.Map, ids ...string) *Selection {
	ids = slices.Clone(ids)
	return &Selection{m: m, name: "Select Objects", apply: func(m *model.Map) error {
		if err := m.Select(ids...); err != nil {
			return err
		}
		m.DeselectAll()
		return m.Select(ids...)
	}}
}

func NewSelectAll(m *model.Map) *Selection {
	return &Selection{m: m, name: "Select All", apply: func(m *model.Map) error {
		return m.Select(m.SelectableIDs()...)
	}}
}

func NewDeselect(m *model.Map, ids ...string) *Selection {
	ids = slices.Clone(ids)
	return &Selection{m: m, name: "Deselect Objects", apply: func(m *model.Map) error {
		m.Deselect(ids...)
		return nil
	}}
}

func NewDeselectAll(m *model.Map) *Selection {
	return &Selection{m: m, name: "Deselect All", apply: func(m *model.Map) error {
		m.DeselectAll()
		return nil
	}}
}

// NewSelectInverse selects every selectable node that is not selected.
func NewSelectInverse(m *model.Map) *Selection {
	return &Selection{m: m, name: "Select Inverse", apply: func(m *model.Map) error {
		var ids []string
		for _, id := range m.SelectableIDs() {
			if !m.IsSelected(id) {
				ids = append(ids, id)
			}
		}
		m.DeselectAll()
		return m.Select(ids...)
	}}
}

// NewSelectTouching replaces a selection of brushes with the other nodes
// whose boxes touch or overlap any of them.
func NewSelectTouching(m *model.Map) *Selection {
	return &Selection{m: m, name: "Select Touching", apply: func(m *model.Map) error {
		return selectByBrushes(m, model.BBox.Intersects)
	}}
}

// NewSelectInside replaces a selection of brushes with the other nodes that
// lie completely inside one of them.
func NewSelectInside(m *model.Map) *Selection {
	return &Selection{m: m, name: "Select Inside", apply: func(m *model.Map) error {
		return selectByBrushes(m, model.BBox.Contains)
	}}
}

func selectByBrushes(m *model.Map, match func(selector, node model.BBox) bool) error {
	selectors, err := SelectedBrushes(m)
	if err != nil {
		return err
	}
	var ids []string
	for _, id := range m.SelectableIDs() {
		if m.IsSelected(id) {
			continue
		}
		nb, _ := m.NodeBounds(id)
		for _, sb := range selectors {
			if match(sb, nb) {
				ids = append(ids, id)
				break
			}
		}
	}
	m.DeselectAll()
	return m.Select(ids...)
}

// SelectedBrushes returns the boxes of the selected brushes. The selection
// must be non-empty and hold brushes only.
func SelectedBrushes(m *model.Map) ([]model.BBox, error) {
	ids := m.SelectedIDs()
	if len(ids) == 0 {
		return nil, ErrNothingSelected
	}
	boxes := make([]model.BBox, 0, len(ids))
	for _, id := range ids {
		b, ok := m.Brush(id)
		if !ok {
			return nil, fmt.Errorf("%s: %w", id, ErrBrushesOnly)
		}
		boxes = append(boxes, b.Bounds)
	}
	return boxes, nil
}

func (c *Selection) Name() string { return c.name }

func (c *Selection) Do() error {
	before := c.m.SelectedIDs()
	if err := c.apply(c.m); err != nil {
		return err
	}
	c.before = before
	c.after = c.m.SelectedIDs()
	return nil
}

func (c *Selection) Undo() error {
	return restoreSelection(c.m, c.before)
}

func (c *Selection) HasEffect() bool {
	return !slices.Equal(c.before, c.after)
}

func (c *Selection) IsRepeatDelimiter() bool { return true }

func restoreSelection(m *model.Map, ids []string) error {
	m.DeselectAll()
	return m.Select(ids...)
}
