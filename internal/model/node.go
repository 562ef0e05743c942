package model

import (
	"maps"

	"github.com/google/uuid"
)

const (
	ClassnameKey = "classname"
	Worldspawn   = "worldspawn"

	// PointEntityHalfSize is the half extent of the box used to validate and
	// transform point entities.
	PointEntityHalfSize = 8
)

// NewID returns a fresh node id.
func NewID() string {
	return uuid.NewString()
}

type Brush struct {
	ID       string `json:"id"`
	EntityID string `json:"entity_id"`
	Bounds   BBox   `json:"bounds"`
	Texture  string `json:"texture,omitempty"`
}

// Entity is either a point entity (Point set, positioned by Origin) or a
// brush entity owning zero or more brushes.
type Entity struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	Point      bool              `json:"point,omitempty"`
	Origin     Vec3              `json:"origin"`
}

func (e *Entity) Classname() string {
	return e.Properties[ClassnameKey]
}

func (e *Entity) clone() *Entity {
	c := *e
	c.Properties = maps.Clone(e.Properties)
	if c.Properties == nil {
		c.Properties = map[string]string{}
	}
	return &c
}

// Bounds returns the box a point entity occupies.
func (e *Entity) Bounds() BBox {
	return CubeAround(e.Origin, PointEntityHalfSize)
}

// NewPointEntity creates a point entity of the given class at origin.
func NewPointEntity(classname string, origin Vec3) *Entity {
	return &Entity{
		ID:         NewID(),
		Properties: map[string]string{ClassnameKey: classname},
		Point:      true,
		Origin:     origin,
	}
}

// NewBrush creates a brush owned by entityID.
func NewBrush(entityID string, bounds BBox, texture string) Brush {
	return Brush{
		ID:       NewID(),
		EntityID: entityID,
		Bounds:   bounds,
		Texture:  texture,
	}
}
