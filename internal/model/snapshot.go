package model

import (
	"fmt"
	"slices"
)

// Snapshot is a self-contained value copy of a map or of part of one. It is
// the document file format and the clipboard format.
type Snapshot struct {
	WorldBounds BBox             `json:"world_bounds"`
	Entities    []EntitySnapshot `json:"entities"`
	Selection   []string         `json:"selection,omitempty"`
}

type EntitySnapshot struct {
	Entity
	Brushes []Brush `json:"brushes,omitempty"`
}

// Snapshot copies the whole map. Worldspawn comes first, the remaining
// entities and all brushes are sorted by id.
func (m *Map) Snapshot() Snapshot {
	s := Snapshot{WorldBounds: m.worldBounds}
	s.Entities = append(s.Entities, m.entitySnapshot(m.worldspawn, m.BrushesOf(m.worldspawn)))
	for _, id := range m.EntityIDs() {
		if id == m.worldspawn {
			continue
		}
		s.Entities = append(s.Entities, m.entitySnapshot(id, m.BrushesOf(id)))
	}
	if len(m.selected) > 0 {
		s.Selection = m.SelectedIDs()
	}
	return s
}

func (m *Map) entitySnapshot(id string, brushIDs []string) EntitySnapshot {
	es := EntitySnapshot{Entity: *m.entities[id].clone()}
	for _, bid := range brushIDs {
		es.Brushes = append(es.Brushes, m.brushes[bid])
	}
	return es
}

// Fragment copies the given selectable nodes together with their owning
// entities, as needed for the clipboard.
func (m *Map) Fragment(ids []string) Snapshot {
	owned := map[string][]string{}
	var order []string
	for _, id := range ids {
		owner, ok := m.OwnerEntity(id)
		if !ok {
			continue
		}
		if _, seen := owned[owner]; !seen {
			order = append(order, owner)
			owned[owner] = nil
		}
		if _, isBrush := m.brushes[id]; isBrush {
			owned[owner] = append(owned[owner], id)
		}
	}
	slices.Sort(order)
	s := Snapshot{WorldBounds: m.worldBounds}
	for _, owner := range order {
		brushIDs := owned[owner]
		slices.Sort(brushIDs)
		s.Entities = append(s.Entities, m.entitySnapshot(owner, brushIDs))
	}
	return s
}

// FromSnapshot rebuilds a map, keeping all node ids.
func FromSnapshot(s Snapshot) (*Map, error) {
	m := &Map{
		worldBounds: s.WorldBounds,
		entities:    map[string]*Entity{},
		brushes:     map[string]Brush{},
		selected:    map[string]bool{},
	}
	if m.worldBounds.Degenerate() {
		return nil, &ValidationError{Op: "load", Reason: "degenerate world bounds"}
	}
	for _, es := range s.Entities {
		if es.Classname() != Worldspawn {
			continue
		}
		if m.worldspawn != "" {
			return nil, &ValidationError{Op: "load", NodeID: es.ID, Reason: "more than one worldspawn"}
		}
		m.worldspawn = es.ID
		m.entities[es.ID] = es.Entity.clone()
	}
	if m.worldspawn == "" {
		return nil, &ValidationError{Op: "load", Reason: "missing worldspawn"}
	}
	for _, es := range s.Entities {
		if es.ID != m.worldspawn {
			if err := m.AddEntity(&es.Entity); err != nil {
				return nil, fmt.Errorf("load: %w", err)
			}
		}
	}
	for _, es := range s.Entities {
		for _, b := range es.Brushes {
			b.EntityID = es.ID
			if err := m.AddBrush(b); err != nil {
				return nil, fmt.Errorf("load: %w", err)
			}
		}
	}
	if err := m.Select(s.Selection...); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	m.selectionVersion = 0
	return m, nil
}

// Instantiate creates fresh copies of the nodes in s for insertion into a map
// whose worldspawn is worldspawnID. Brushes of the fragment's worldspawn are
// reparented to it; every other entity gets a new id.
func (s Snapshot) Instantiate(worldspawnID string) ([]*Entity, []Brush) {
	var (
		entities []*Entity
		brushes  []Brush
	)
	for _, es := range s.Entities {
		owner := worldspawnID
		if es.Classname() != Worldspawn {
			e := es.Entity.clone()
			e.ID = NewID()
			entities = append(entities, e)
			owner = e.ID
		}
		for _, b := range es.Brushes {
			brushes = append(brushes, NewBrush(owner, b.Bounds, b.Texture))
		}
	}
	return entities, brushes
}
