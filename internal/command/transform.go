package command

import (
	"maps"
	"slices"

	"github.com/kobzarvs/qmap/internal/history"
	"github.com/kobzarvs/qmap/internal/model"
)

type transformKind int

const (
	kindTranslate transformKind = iota
	kindFlip
	kindRotate
)

// TransformObjects moves, flips or quarter-turns a fixed set of nodes.
// Flips and rotations pivot on the center of the nodes' combined bounds as
// they were when the command was created.
type TransformObjects struct {
	m         *model.Map
	kind      transformKind
	ids       []string
	delta     model.Vec3
	axis      model.Axis
	clockwise bool
	center    model.Vec3

	before map[string]model.BBox
	after  map[string]model.BBox
}

func NewTranslateObjects(m *model.Map, ids []string, delta model.Vec3) *TransformObjects {
	return newTransform(m, kindTranslate, ids, func(c *TransformObjects) { c.delta = delta })
}

func NewFlipObjects(m *model.Map, ids []string, axis model.Axis) *TransformObjects {
	return newTransform(m, kindFlip, ids, func(c *TransformObjects) { c.axis = axis })
}

func NewRotateObjects90(m *model.Map, ids []string, axis model.Axis, clockwise bool) *TransformObjects {
	return newTransform(m, kindRotate, ids, func(c *TransformObjects) {
		c.axis = axis
		c.clockwise = clockwise
	})
}

func newTransform(m *model.Map, kind transformKind, ids []string, set func(*TransformObjects)) *TransformObjects {
	c := &TransformObjects{m: m, kind: kind, ids: slices.Clone(ids)}
	set(c)
	var (
		bounds model.BBox
		found  bool
	)
	for _, id := range c.ids {
		b, ok := m.NodeBounds(id)
		if !ok {
			continue
		}
		if !found {
			bounds, found = b, true
		} else {
			bounds = bounds.Merge(b)
		}
	}
	c.center = bounds.Center()
	return c
}

func (c *TransformObjects) Name() string {
	switch c.kind {
	case kindFlip:
		return "Flip Objects"
	case kindRotate:
		return "Rotate Objects"
	default:
		return "Move Objects"
	}
}

// Delta returns the translation of a move command.
func (c *TransformObjects) Delta() model.Vec3 {
	return c.delta
}

func (c *TransformObjects) apply(b model.BBox) model.BBox {
	switch c.kind {
	case kindFlip:
		return b.Flip(c.axis, c.center)
	case kindRotate:
		return b.Rotate90(c.axis, c.center, c.clockwise)
	default:
		return b.Translate(c.delta)
	}
}

func (c *TransformObjects) Do() error {
	if len(c.ids) == 0 {
		return ErrNothingSelected
	}
	if c.kind == kindTranslate && c.delta.IsZero() {
		c.before, c.after = nil, nil
		return nil
	}
	before := make(map[string]model.BBox, len(c.ids))
	after := make(map[string]model.BBox, len(c.ids))
	for _, id := range c.ids {
		b, ok := c.m.NodeBounds(id)
		if !ok {
			return &model.ValidationError{Op: c.Name(), NodeID: id, Reason: "node no longer exists"}
		}
		before[id] = b
		after[id] = c.apply(b)
	}
	if err := c.m.SetNodeBounds(c.Name(), after); err != nil {
		return err
	}
	c.before, c.after = before, after
	return nil
}

func (c *TransformObjects) Undo() error {
	if len(c.before) == 0 {
		return nil
	}
	return c.m.SetNodeBounds("undo "+c.Name(), c.before)
}

// HasEffect is false for a zero move or when no node actually changed.
func (c *TransformObjects) HasEffect() bool {
	return len(c.before) > 0 && !maps.Equal(c.before, c.after)
}

func (c *TransformObjects) Repeat() (history.Command, error) {
	ids := c.m.SelectedIDs()
	if len(ids) == 0 {
		return nil, ErrNothingSelected
	}
	switch c.kind {
	case kindFlip:
		return NewFlipObjects(c.m, ids, c.axis), nil
	case kindRotate:
		return NewRotateObjects90(c.m, ids, c.axis, c.clockwise), nil
	default:
		return NewTranslateObjects(c.m, ids, c.delta), nil
	}
}
