// Package script replays editing sessions written in YAML against a
// document.
//
//	name: nudge
//	steps:
//	  - op: create-brush
//	    as: wall
//	    min: [0, 0, 0]
//	    max: [64, 16, 128]
//	  - op: translate
//	    delta: {x: 16}
//	  - op: expect
//	    expect: {undo-name: "Undo Move Objects", brushes: 1}
package script

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kobzarvs/qmap/internal/model"
)

type Script struct {
	Name string `yaml:"name"`
	// Game selects the game profile; empty means the configured default.
	Game string `yaml:"game"`
	// World is the half extent of the world; zero means the game's size.
	World float64 `yaml:"world"`
	Steps []Step  `yaml:"steps"`
}

// Step is one editing action. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op"`
	// As labels the node created by this step for later steps.
	As    string   `yaml:"as"`
	Nodes []string `yaml:"nodes"`

	Name      string        `yaml:"name"`
	Min       *Vec          `yaml:"min"`
	Max       *Vec          `yaml:"max"`
	Origin    *Vec          `yaml:"origin"`
	Delta     *Vec          `yaml:"delta"`
	Classname string        `yaml:"classname"`
	Axis      string        `yaml:"axis"`
	Clockwise bool          `yaml:"clockwise"`
	Key       string        `yaml:"key"`
	Value     string        `yaml:"value"`
	Path      string        `yaml:"path"`
	Duration  time.Duration `yaml:"duration"`
	// Keep leaves the selecting brushes of select-touching and
	// select-inside in place.
	Keep bool `yaml:"keep"`

	// Fail marks a step that is expected to be rejected.
	Fail   bool    `yaml:"fail"`
	Expect *Expect `yaml:"expect"`

	line int
}

func (s *Step) UnmarshalYAML(n *yaml.Node) error {
	type plain Step
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*s = Step(p)
	s.line = n.Line
	return nil
}

// Expect lists assertions about the document. Unset fields are not checked.
type Expect struct {
	CanUndo   *bool   `yaml:"can-undo"`
	CanRedo   *bool   `yaml:"can-redo"`
	CanRepeat *bool   `yaml:"can-repeat"`
	UndoName  *string `yaml:"undo-name"`
	RedoName  *string `yaml:"redo-name"`
	Modified  *bool   `yaml:"modified"`
	Brushes   *int    `yaml:"brushes"`
	Entities  *int    `yaml:"entities"`
	Selected  *int    `yaml:"selected"`
	Bounds    *Bounds `yaml:"bounds"`
}

// Bounds asserts the box of a labelled node.
type Bounds struct {
	Node string `yaml:"node"`
	Min  Vec    `yaml:"min"`
	Max  Vec    `yaml:"max"`
}

// Vec accepts either [x, y, z] or {x: .., y: .., z: ..}; missing mapping
// keys are zero.
type Vec model.Vec3

func (v *Vec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.SequenceNode {
		var xs []float64
		if err := n.Decode(&xs); err != nil {
			return err
		}
		if len(xs) != 3 {
			return fmt.Errorf("line %d: vector needs 3 components, got %d", n.Line, len(xs))
		}
		*v = Vec{X: xs[0], Y: xs[1], Z: xs[2]}
		return nil
	}
	var m model.Vec3
	if err := n.Decode(&m); err != nil {
		return err
	}
	*v = Vec(m)
	return nil
}

func (v *Vec) vec3() model.Vec3 {
	if v == nil {
		return model.Vec3{}
	}
	return model.Vec3(*v)
}

// Parse decodes a script and rejects unknown operations up front.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return &s, nil
		}
		return nil, err
	}
	for i, st := range s.Steps {
		if _, ok := handlers[st.Op]; !ok {
			return nil, fmt.Errorf("step %d (line %d): unknown op %q", i+1, st.line, st.Op)
		}
	}
	return &s, nil
}

func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
