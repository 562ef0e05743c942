package command

import (
	"slices"

	"go.uber.org/multierr"

	"github.com/kobzarvs/qmap/internal/history"
	"github.com/kobzarvs/qmap/internal/model"
)

// SetProperty sets (or, with a nil value, removes) one key on a set of
// entities.
type SetProperty struct {
	m         *model.Map
	entityIDs []string
	key       string
	value     *string

	old     map[string]*string
	changed bool
}

func NewSetProperty(m *model.Map, entityIDs []string, key string, value *string) *SetProperty {
	if value != nil {
		v := *value
		value = &v
	}
	return &SetProperty{m: m, entityIDs: uniqueIDs(entityIDs), key: key, value: value}
}

func (c *SetProperty) Name() string {
	if c.value == nil {
		return "Remove Property"
	}
	return "Set Property"
}

func (c *SetProperty) Do() error {
	if len(c.entityIDs) == 0 {
		return ErrNothingSelected
	}
	old := make(map[string]*string, len(c.entityIDs))
	changed := false
	var applied []string
	for _, id := range c.entityIDs {
		var prev *string
		if v, ok := c.m.Property(id, c.key); ok {
			prev = &v
		}
		if err := c.m.SetProperty(id, c.key, c.value); err != nil {
			var rerr error
			for i := len(applied) - 1; i >= 0; i-- {
				rerr = multierr.Append(rerr, c.m.SetProperty(applied[i], c.key, old[applied[i]]))
			}
			return multierr.Append(err, rerr)
		}
		old[id] = prev
		applied = append(applied, id)
		if !sameValue(prev, c.value) {
			changed = true
		}
	}
	c.old = old
	c.changed = changed
	return nil
}

func (c *SetProperty) Undo() error {
	var err error
	for i := len(c.entityIDs) - 1; i >= 0; i-- {
		id := c.entityIDs[i]
		err = multierr.Append(err, c.m.SetProperty(id, c.key, c.old[id]))
	}
	return err
}

func (c *SetProperty) HasEffect() bool {
	return c.changed
}

// Repeat applies the same property to the entities owning the current
// selection.
func (c *SetProperty) Repeat() (history.Command, error) {
	ids := SelectedEntities(c.m)
	if len(ids) == 0 {
		return nil, ErrNothingSelected
	}
	return NewSetProperty(c.m, ids, c.key, c.value), nil
}

// SelectedEntities returns the ids of the entities owning the selected
// nodes, sorted and without duplicates.
func SelectedEntities(m *model.Map) []string {
	var ids []string
	for _, id := range m.SelectedIDs() {
		if owner, ok := m.OwnerEntity(id); ok {
			ids = append(ids, owner)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
