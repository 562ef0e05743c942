package model

import (
	"fmt"
	"maps"
	"slices"
)

// Select adds nodes to the selection. Unknown or unselectable ids are
// rejected before anything changes.
func (m *Map) Select(ids ...string) error {
	for _, id := range ids {
		if !m.isSelectable(id) {
			return fmt.Errorf("select %s: %w", id, ErrNodeNotFound)
		}
	}
	changed := false
	for _, id := range ids {
		if !m.selected[id] {
			m.selected[id] = true
			changed = true
		}
	}
	if changed {
		m.selectionVersion++
	}
	return nil
}

// Deselect removes nodes from the selection; ids that are not selected are
// ignored.
func (m *Map) Deselect(ids ...string) {
	changed := false
	for _, id := range ids {
		if m.selected[id] {
			delete(m.selected, id)
			changed = true
		}
	}
	if changed {
		m.selectionVersion++
	}
}

func (m *Map) deselect(id string) {
	m.Deselect(id)
}

func (m *Map) DeselectAll() {
	if len(m.selected) == 0 {
		return
	}
	clear(m.selected)
	m.selectionVersion++
}

func (m *Map) IsSelected(id string) bool {
	return m.selected[id]
}

func (m *Map) HasSelection() bool {
	return len(m.selected) > 0
}

// SelectedIDs returns the selection in sorted order.
func (m *Map) SelectedIDs() []string {
	return slices.Sorted(maps.Keys(m.selected))
}

// SelectionBounds returns the union of the boxes of all selected nodes.
func (m *Map) SelectionBounds() (BBox, bool) {
	var (
		out   BBox
		found bool
	)
	for _, id := range m.SelectedIDs() {
		b, ok := m.NodeBounds(id)
		if !ok {
			continue
		}
		if !found {
			out, found = b, true
			continue
		}
		out = out.Merge(b)
	}
	return out, found
}

// SelectionVersion changes whenever the set of selected nodes changes.
func (m *Map) SelectionVersion() uint64 {
	return m.selectionVersion
}
