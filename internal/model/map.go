package model

import (
	"fmt"
	"maps"
	"slices"
)

// Map holds the entities and brushes of one level together with the
// current selection. Selectable nodes are brushes and point entities.
//
// Map is not safe for concurrent use; it is owned by a single document.
type Map struct {
	worldBounds BBox
	worldspawn  string
	entities    map[string]*Entity
	brushes     map[string]Brush

	selected         map[string]bool
	selectionVersion uint64
}

// NewMap creates an empty map with a worldspawn entity.
func NewMap(worldBounds BBox) *Map {
	m := &Map{
		worldBounds: worldBounds,
		entities:    map[string]*Entity{},
		brushes:     map[string]Brush{},
		selected:    map[string]bool{},
	}
	ws := &Entity{
		ID:         NewID(),
		Properties: map[string]string{ClassnameKey: Worldspawn},
	}
	m.entities[ws.ID] = ws
	m.worldspawn = ws.ID
	return m
}

func (m *Map) WorldBounds() BBox {
	return m.worldBounds
}

func (m *Map) WorldspawnID() string {
	return m.worldspawn
}

// Entity returns a copy of the entity with the given id.
func (m *Map) Entity(id string) (*Entity, bool) {
	e, ok := m.entities[id]
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

func (m *Map) Brush(id string) (Brush, bool) {
	b, ok := m.brushes[id]
	return b, ok
}

// EntityIDs returns all entity ids in sorted order.
func (m *Map) EntityIDs() []string {
	return slices.Sorted(maps.Keys(m.entities))
}

// BrushIDs returns all brush ids in sorted order.
func (m *Map) BrushIDs() []string {
	return slices.Sorted(maps.Keys(m.brushes))
}

// BrushesOf returns the ids of the brushes owned by entityID, sorted.
func (m *Map) BrushesOf(entityID string) []string {
	var ids []string
	for id, b := range m.brushes {
		if b.EntityID == entityID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// SelectableIDs returns the ids of all brushes and point entities.
func (m *Map) SelectableIDs() []string {
	ids := m.BrushIDs()
	for id, e := range m.entities {
		if e.Point {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (m *Map) isSelectable(id string) bool {
	if _, ok := m.brushes[id]; ok {
		return true
	}
	e, ok := m.entities[id]
	return ok && e.Point
}

// NodeBounds returns the box of a brush or point entity.
func (m *Map) NodeBounds(id string) (BBox, bool) {
	if b, ok := m.brushes[id]; ok {
		return b.Bounds, true
	}
	if e, ok := m.entities[id]; ok && e.Point {
		return e.Bounds(), true
	}
	return BBox{}, false
}

func (m *Map) checkBounds(op, id string, b BBox) error {
	if b.Degenerate() {
		return &ValidationError{Op: op, NodeID: id, Reason: "degenerate bounds " + b.String()}
	}
	if !m.worldBounds.Contains(b) {
		return &ValidationError{Op: op, NodeID: id, Reason: "outside world bounds " + b.String()}
	}
	return nil
}

// AddEntity inserts a copy of e.
func (m *Map) AddEntity(e *Entity) error {
	if _, ok := m.entities[e.ID]; ok {
		return fmt.Errorf("add entity %s: %w", e.ID, ErrDuplicateNode)
	}
	if _, ok := m.brushes[e.ID]; ok {
		return fmt.Errorf("add entity %s: %w", e.ID, ErrDuplicateNode)
	}
	if e.Classname() == Worldspawn {
		return &ValidationError{Op: "add entity", NodeID: e.ID, Reason: "map already has a worldspawn"}
	}
	if e.Point {
		if err := m.checkBounds("add entity", e.ID, e.Bounds()); err != nil {
			return err
		}
	}
	m.entities[e.ID] = e.clone()
	return nil
}

// RemoveEntity removes an entity that owns no brushes. The entity is
// deselected first.
func (m *Map) RemoveEntity(id string) (*Entity, error) {
	e, ok := m.entities[id]
	if !ok {
		return nil, fmt.Errorf("remove entity %s: %w", id, ErrNodeNotFound)
	}
	if id == m.worldspawn {
		return nil, &ValidationError{Op: "remove entity", NodeID: id, Reason: "cannot remove worldspawn"}
	}
	if len(m.BrushesOf(id)) > 0 {
		return nil, &ValidationError{Op: "remove entity", NodeID: id, Reason: "entity still owns brushes"}
	}
	m.deselect(id)
	delete(m.entities, id)
	return e.clone(), nil
}

func (m *Map) AddBrush(b Brush) error {
	if _, ok := m.brushes[b.ID]; ok {
		return fmt.Errorf("add brush %s: %w", b.ID, ErrDuplicateNode)
	}
	if _, ok := m.entities[b.ID]; ok {
		return fmt.Errorf("add brush %s: %w", b.ID, ErrDuplicateNode)
	}
	owner, ok := m.entities[b.EntityID]
	if !ok {
		return fmt.Errorf("add brush %s: owner %s: %w", b.ID, b.EntityID, ErrNodeNotFound)
	}
	if owner.Point {
		return &ValidationError{Op: "add brush", NodeID: b.ID, Reason: "point entities cannot own brushes"}
	}
	if err := m.checkBounds("add brush", b.ID, b.Bounds); err != nil {
		return err
	}
	m.brushes[b.ID] = b
	return nil
}

// RemoveBrush removes a brush, deselecting it first.
func (m *Map) RemoveBrush(id string) (Brush, error) {
	b, ok := m.brushes[id]
	if !ok {
		return Brush{}, fmt.Errorf("remove brush %s: %w", id, ErrNodeNotFound)
	}
	m.deselect(id)
	delete(m.brushes, id)
	return b, nil
}

// SetNodeBounds moves brushes and point entities to new boxes. A point
// entity is moved so that its box is centered on the new box. Either every
// node is updated or none is.
func (m *Map) SetNodeBounds(op string, bounds map[string]BBox) error {
	for _, id := range slices.Sorted(maps.Keys(bounds)) {
		b := bounds[id]
		if !m.isSelectable(id) {
			return fmt.Errorf("%s %s: %w", op, id, ErrNodeNotFound)
		}
		if e, ok := m.entities[id]; ok && e.Point {
			b = CubeAround(b.Center(), PointEntityHalfSize)
		}
		if err := m.checkBounds(op, id, b); err != nil {
			return err
		}
	}
	for id, b := range bounds {
		if br, ok := m.brushes[id]; ok {
			br.Bounds = b
			m.brushes[id] = br
			continue
		}
		m.entities[id].Origin = b.Center()
	}
	return nil
}

// Property returns an entity property.
func (m *Map) Property(entityID, key string) (string, bool) {
	e, ok := m.entities[entityID]
	if !ok {
		return "", false
	}
	v, ok := e.Properties[key]
	return v, ok
}

// SetProperty sets key to value on the entity. A nil value removes the key.
func (m *Map) SetProperty(entityID, key string, value *string) error {
	e, ok := m.entities[entityID]
	if !ok {
		return fmt.Errorf("set property %s: %w", entityID, ErrNodeNotFound)
	}
	if key == "" {
		return &ValidationError{Op: "set property", NodeID: entityID, Reason: "empty key"}
	}
	if key == ClassnameKey && entityID == m.worldspawn {
		return &ValidationError{Op: "set property", NodeID: entityID, Reason: "cannot change worldspawn classname"}
	}
	if key == ClassnameKey && value != nil && *value == Worldspawn {
		return &ValidationError{Op: "set property", NodeID: entityID, Reason: "map already has a worldspawn"}
	}
	if value == nil {
		delete(e.Properties, key)
		return nil
	}
	if e.Properties == nil {
		e.Properties = map[string]string{}
	}
	e.Properties[key] = *value
	return nil
}

// OwnerEntity returns the id of the entity a selectable node belongs to:
// the owner of a brush or the point entity itself.
func (m *Map) OwnerEntity(id string) (string, bool) {
	if b, ok := m.brushes[id]; ok {
		return b.EntityID, true
	}
	if e, ok := m.entities[id]; ok && e.Point {
		return id, true
	}
	return "", false
}

// Validate checks every node against the world bounds and for degenerate
// geometry.
func (m *Map) Validate() error {
	for _, id := range m.BrushIDs() {
		if err := m.checkBounds("validate", id, m.brushes[id].Bounds); err != nil {
			return err
		}
	}
	for _, id := range m.EntityIDs() {
		e := m.entities[id]
		if !e.Point {
			continue
		}
		if err := m.checkBounds("validate", id, e.Bounds()); err != nil {
			return err
		}
	}
	return nil
}
