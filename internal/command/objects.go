package command

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"github.com/kobzarvs/qmap/internal/history"
	"github.com/kobzarvs/qmap/internal/model"
)

var ErrNothingSelected = errors.New("nothing selected")

// AddNodes inserts entities and brushes and, optionally, makes them the
// selection.
type AddNodes struct {
	m        *model.Map
	name     string
	entities []*model.Entity
	brushes  []model.Brush
	selectIt bool

	selBefore []string
}

func NewAddNodes(m *model.Map, name string, entities []*model.Entity, brushes []model.Brush, selectAdded bool) *AddNodes {
	return &AddNodes{m: m, name: name, entities: entities, brushes: brushes, selectIt: selectAdded}
}

func (c *AddNodes) Name() string { return c.name }

// Added returns the ids of the inserted selectable nodes.
func (c *AddNodes) Added() []string {
	var ids []string
	for _, e := range c.entities {
		if e.Point {
			ids = append(ids, e.ID)
		}
	}
	for _, b := range c.brushes {
		ids = append(ids, b.ID)
	}
	return ids
}

func (c *AddNodes) Do() error {
	var addedEntities []string
	var addedBrushes []string
	undoPartial := func(cause error) error {
		var err error
		for i := len(addedBrushes) - 1; i >= 0; i-- {
			_, rerr := c.m.RemoveBrush(addedBrushes[i])
			err = multierr.Append(err, rerr)
		}
		for i := len(addedEntities) - 1; i >= 0; i-- {
			_, rerr := c.m.RemoveEntity(addedEntities[i])
			err = multierr.Append(err, rerr)
		}
		return multierr.Append(cause, err)
	}
	for _, e := range c.entities {
		if err := c.m.AddEntity(e); err != nil {
			return undoPartial(err)
		}
		addedEntities = append(addedEntities, e.ID)
	}
	for _, b := range c.brushes {
		if err := c.m.AddBrush(b); err != nil {
			return undoPartial(err)
		}
		addedBrushes = append(addedBrushes, b.ID)
	}
	if c.selectIt {
		c.selBefore = c.m.SelectedIDs()
		if err := restoreSelection(c.m, c.Added()); err != nil {
			return undoPartial(err)
		}
	}
	return nil
}

func (c *AddNodes) Undo() error {
	var err error
	for i := len(c.brushes) - 1; i >= 0; i-- {
		_, rerr := c.m.RemoveBrush(c.brushes[i].ID)
		err = multierr.Append(err, rerr)
	}
	for i := len(c.entities) - 1; i >= 0; i-- {
		_, rerr := c.m.RemoveEntity(c.entities[i].ID)
		err = multierr.Append(err, rerr)
	}
	if c.selectIt {
		err = multierr.Append(err, restoreSelection(c.m, c.selBefore))
	}
	return err
}

func (c *AddNodes) HasEffect() bool {
	return len(c.entities) > 0 || len(c.brushes) > 0
}

// DeleteObjects removes the selected nodes. Brush entities left without
// brushes are removed with them.
type DeleteObjects struct {
	m   *model.Map
	ids []string

	selBefore []string
	brushes   []model.Brush
	entities  []*model.Entity
}

func NewDeleteObjects(m *model.Map, ids []string) *DeleteObjects {
	return &DeleteObjects{m: m, ids: uniqueIDs(ids)}
}

// uniqueIDs returns a sorted copy of ids without duplicates.
func uniqueIDs(ids []string) []string {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	return slices.Compact(ids)
}

func (c *DeleteObjects) Name() string { return "Delete Objects" }

func (c *DeleteObjects) Do() error {
	if len(c.ids) == 0 {
		return ErrNothingSelected
	}
	removeBrushes := map[string]bool{}
	var pointEntities []string
	for _, id := range c.ids {
		if _, ok := c.m.Brush(id); ok {
			removeBrushes[id] = true
			continue
		}
		if e, ok := c.m.Entity(id); ok && e.Point {
			pointEntities = append(pointEntities, id)
			continue
		}
		return fmt.Errorf("delete %s: %w", id, model.ErrNodeNotFound)
	}
	// owners that lose all of their brushes
	var emptied []string
	seen := map[string]bool{}
	for id := range removeBrushes {
		b, _ := c.m.Brush(id)
		owner := b.EntityID
		if owner == c.m.WorldspawnID() || seen[owner] {
			continue
		}
		seen[owner] = true
		all := true
		for _, bid := range c.m.BrushesOf(owner) {
			if !removeBrushes[bid] {
				all = false
				break
			}
		}
		if all {
			emptied = append(emptied, owner)
		}
	}

	c.selBefore = c.m.SelectedIDs()
	c.brushes = nil
	c.entities = nil
	for _, id := range c.ids {
		if !removeBrushes[id] {
			continue
		}
		b, err := c.m.RemoveBrush(id)
		if err != nil {
			return multierr.Append(err, c.restore())
		}
		c.brushes = append(c.brushes, b)
	}
	for _, id := range append(pointEntities, emptied...) {
		e, err := c.m.RemoveEntity(id)
		if err != nil {
			return multierr.Append(err, c.restore())
		}
		c.entities = append(c.entities, e)
	}
	return nil
}

func (c *DeleteObjects) Undo() error {
	return c.restore()
}

// restore re-adds whatever Do removed, owners before their brushes.
func (c *DeleteObjects) restore() error {
	var err error
	for _, e := range c.entities {
		err = multierr.Append(err, c.m.AddEntity(e))
	}
	for _, b := range c.brushes {
		err = multierr.Append(err, c.m.AddBrush(b))
	}
	return multierr.Append(err, restoreSelection(c.m, c.selBefore))
}

// DuplicateObjects copies the selected nodes in place and selects the
// copies. The copies keep their ids when the command is redone.
type DuplicateObjects struct {
	m   *model.Map
	ids []string
	add *AddNodes
}

func NewDuplicateObjects(m *model.Map, ids []string) *DuplicateObjects {
	return &DuplicateObjects{m: m, ids: uniqueIDs(ids)}
}

func (c *DuplicateObjects) Name() string { return "Duplicate Objects" }

func (c *DuplicateObjects) Do() error {
	if len(c.ids) == 0 {
		return ErrNothingSelected
	}
	if c.add == nil {
		entities, brushes := c.m.Fragment(c.ids).Instantiate(c.m.WorldspawnID())
		if len(entities) == 0 && len(brushes) == 0 {
			return fmt.Errorf("duplicate: %w", model.ErrNodeNotFound)
		}
		c.add = NewAddNodes(c.m, c.Name(), entities, brushes, true)
	}
	return c.add.Do()
}

func (c *DuplicateObjects) Undo() error {
	if c.add == nil {
		return nil
	}
	return c.add.Undo()
}

func (c *DuplicateObjects) Repeat() (history.Command, error) {
	ids := c.m.SelectedIDs()
	if len(ids) == 0 {
		return nil, ErrNothingSelected
	}
	return NewDuplicateObjects(c.m, ids), nil
}
