package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kobzarvs/qmap/internal/document"
	"github.com/kobzarvs/qmap/internal/history"
	"github.com/kobzarvs/qmap/internal/model"
)

var ErrRejected = errors.New("rejected")

type handler func(r *Runner, ctx context.Context, st Step) error

var handlers = map[string]handler{
	"create-brush":    createBrush,
	"create-entity":   createEntity,
	"select":          selectNodes,
	"select-all":      func(r *Runner, _ context.Context, _ Step) error { return r.doc.SelectAll() },
	"deselect-all":    func(r *Runner, _ context.Context, _ Step) error { return r.doc.DeselectAll() },
	"select-inverse":  func(r *Runner, _ context.Context, _ Step) error { return r.doc.SelectInverse() },
	"select-touching": func(r *Runner, _ context.Context, st Step) error { return r.doc.SelectTouching(!st.Keep) },
	"select-inside":   func(r *Runner, _ context.Context, st Step) error { return r.doc.SelectInside(!st.Keep) },
	"translate":       translate,
	"flip":            flip,
	"rotate":          rotate,
	"duplicate":       func(r *Runner, _ context.Context, _ Step) error { return r.doc.DuplicateObjects() },
	"delete":          func(r *Runner, _ context.Context, _ Step) error { return r.doc.DeleteObjects() },
	"set-property":    setProperty,
	"remove-property": removeProperty,
	"begin":           begin,
	"commit":          commit,
	"cancel":          cancel,
	"undo":            undo,
	"redo":            redo,
	"repeat":          func(r *Runner, _ context.Context, _ Step) error { return r.doc.RepeatCommands() },
	"clear-repeat":    clearRepeat,
	"copy":            func(r *Runner, _ context.Context, _ Step) error { return r.doc.Copy(r.clipboard) },
	"cut":             func(r *Runner, _ context.Context, _ Step) error { return r.doc.Cut(r.clipboard) },
	"paste":           paste,
	"save":            save,
	"export":          func(r *Runner, _ context.Context, st Step) error { return r.doc.Export(st.Path) },
	"load":            load,
	"clear":           clearDoc,
	"idle":            idle,
	"expect":          expect,
	"print":           printState,
}

// Runner executes scripts against one document. Steps run on the caller's
// goroutine; Input and Idle let the caller drive autosave.
type Runner struct {
	doc       *document.Document
	clipboard document.Clipboard
	log       *zap.Logger
	labels    map[string]string
	tx        *history.Transaction

	// Input is called before every step that stands for user input.
	Input func()
	// Idle waits for d without user input. The default sleeps.
	Idle func(ctx context.Context, d time.Duration) error
	// Out receives the output of print steps.
	Out io.Writer
}

func NewRunner(doc *document.Document, cb document.Clipboard, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		doc:       doc,
		clipboard: cb,
		log:       log,
		labels:    map[string]string{},
		Idle:      sleep,
		Out:       io.Discard,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Label returns the node id recorded under name by an "as" field.
func (r *Runner) Label(name string) (string, bool) {
	id, ok := r.labels[name]
	return id, ok
}

// Run executes the steps in order and stops at the first unexpected
// failure. A transaction still open at the end is rolled back and reported.
func (r *Runner) Run(ctx context.Context, s *Script) error {
	defer func() {
		if r.tx != nil {
			r.log.Warn("rolling back unfinished transaction", zap.String("transaction", r.tx.Name()))
			r.tx.Close()
			r.tx = nil
		}
	}()

	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Input != nil && st.Op != "expect" && st.Op != "idle" && st.Op != "print" {
			r.Input()
		}
		err := handlers[st.Op](r, ctx, st)
		if st.Fail {
			if err == nil {
				return fmt.Errorf("step %d (%s, line %d): succeeded, want failure", i+1, st.Op, st.line)
			}
			r.log.Debug("step failed as expected", zap.Int("step", i+1), zap.String("op", st.Op), zap.Error(err))
		} else if err != nil {
			return fmt.Errorf("step %d (%s, line %d): %w", i+1, st.Op, st.line, err)
		}
		if st.Expect != nil && st.Op != "expect" {
			if err := r.check(st.Expect); err != nil {
				return fmt.Errorf("step %d (%s, line %d): %w", i+1, st.Op, st.line, err)
			}
		}
	}
	if r.tx != nil {
		return fmt.Errorf("transaction %q left open", r.tx.Name())
	}
	return nil
}

func (r *Runner) resolve(names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, n := range names {
		id, ok := r.labels[n]
		if !ok {
			return nil, fmt.Errorf("unknown node %q", n)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Runner) label(st Step, id string) {
	if st.As != "" {
		r.labels[st.As] = id
	}
}

func createBrush(r *Runner, _ context.Context, st Step) error {
	if st.Min == nil || st.Max == nil {
		return fmt.Errorf("create-brush needs min and max")
	}
	id, err := r.doc.CreateBrush(model.NewBBox(st.Min.vec3(), st.Max.vec3()))
	if err != nil {
		return err
	}
	r.label(st, id)
	return nil
}

func createEntity(r *Runner, _ context.Context, st Step) error {
	if st.Classname == "" {
		return fmt.Errorf("create-entity needs a classname")
	}
	id, err := r.doc.CreatePointEntity(st.Classname, st.Origin.vec3())
	if err != nil {
		return err
	}
	r.label(st, id)
	return nil
}

func selectNodes(r *Runner, _ context.Context, st Step) error {
	ids, err := r.resolve(st.Nodes)
	if err != nil {
		return err
	}
	return r.doc.SelectNodes(ids...)
}

func translate(r *Runner, _ context.Context, st Step) error {
	if !r.doc.TranslateObjects(st.Delta.vec3()) {
		return fmt.Errorf("move: %w", ErrRejected)
	}
	return nil
}

func flip(r *Runner, _ context.Context, st Step) error {
	axis, err := model.ParseAxis(st.Axis)
	if err != nil {
		return err
	}
	if !r.doc.FlipObjects(axis) {
		return fmt.Errorf("flip: %w", ErrRejected)
	}
	return nil
}

func rotate(r *Runner, _ context.Context, st Step) error {
	axis, err := model.ParseAxis(st.Axis)
	if err != nil {
		return err
	}
	if !r.doc.RotateObjects90(axis, st.Clockwise) {
		return fmt.Errorf("rotate: %w", ErrRejected)
	}
	return nil
}

func setProperty(r *Runner, _ context.Context, st Step) error {
	v := st.Value
	return r.doc.SetProperty(st.Key, &v)
}

func removeProperty(r *Runner, _ context.Context, st Step) error {
	return r.doc.SetProperty(st.Key, nil)
}

func begin(r *Runner, _ context.Context, st Step) error {
	tx, err := r.doc.Begin(st.Name)
	if err != nil {
		return err
	}
	r.tx = tx
	return nil
}

func commit(r *Runner, _ context.Context, _ Step) error {
	if r.tx == nil {
		return history.ErrTransactionClosed
	}
	tx := r.tx
	r.tx = nil
	return tx.Commit()
}

func cancel(r *Runner, _ context.Context, _ Step) error {
	if r.tx == nil {
		return history.ErrTransactionClosed
	}
	tx := r.tx
	r.tx = nil
	return tx.Cancel()
}

func undo(r *Runner, _ context.Context, _ Step) error {
	if !r.doc.CanUndoCommand() {
		return history.ErrNothingToUndo
	}
	if !r.doc.UndoCommand() {
		return fmt.Errorf("undo: %w", ErrRejected)
	}
	return nil
}

func redo(r *Runner, _ context.Context, _ Step) error {
	if !r.doc.CanRedoCommand() {
		return history.ErrNothingToRedo
	}
	if !r.doc.RedoCommand() {
		return fmt.Errorf("redo: %w", ErrRejected)
	}
	return nil
}

func clearRepeat(r *Runner, _ context.Context, _ Step) error {
	r.doc.ClearRepeatableCommands()
	return nil
}

func paste(r *Runner, _ context.Context, st Step) error {
	if st.Delta == nil {
		return r.doc.PasteAtOriginalPosition(r.clipboard)
	}
	return r.doc.PasteWithOffset(r.clipboard, st.Delta.vec3())
}

func save(r *Runner, _ context.Context, st Step) error {
	return r.doc.Save(st.Path)
}

func load(r *Runner, _ context.Context, st Step) error {
	if err := r.doc.Load(st.Path); err != nil {
		return err
	}
	clear(r.labels)
	return nil
}

func clearDoc(r *Runner, _ context.Context, _ Step) error {
	if err := r.doc.Clear(); err != nil {
		return err
	}
	clear(r.labels)
	return nil
}

func idle(r *Runner, ctx context.Context, st Step) error {
	return r.Idle(ctx, st.Duration)
}

func expect(r *Runner, _ context.Context, st Step) error {
	if st.Expect == nil {
		return fmt.Errorf("expect step without assertions")
	}
	return r.check(st.Expect)
}

func printState(r *Runner, _ context.Context, _ Step) error {
	d := r.doc
	_, err := fmt.Fprintf(r.Out, "%s: brushes=%d entities=%d selected=%d modified=%t [%s] [%s]\n",
		d.Name(),
		len(d.Map().BrushIDs()),
		len(d.Map().EntityIDs())-1,
		len(d.SelectedIDs()),
		d.Modified(),
		d.UndoCommandName(),
		d.RedoCommandName())
	return err
}

func (r *Runner) check(e *Expect) error {
	d := r.doc
	var err error
	checkBool := func(name string, want *bool, got bool) {
		if want != nil && *want != got {
			err = multierr.Append(err, fmt.Errorf("%s = %t, want %t", name, got, *want))
		}
	}
	checkInt := func(name string, want *int, got int) {
		if want != nil && *want != got {
			err = multierr.Append(err, fmt.Errorf("%s = %d, want %d", name, got, *want))
		}
	}
	checkString := func(name string, want *string, got string) {
		if want != nil && *want != got {
			err = multierr.Append(err, fmt.Errorf("%s = %q, want %q", name, got, *want))
		}
	}

	checkBool("can-undo", e.CanUndo, d.CanUndoCommand())
	checkBool("can-redo", e.CanRedo, d.CanRedoCommand())
	checkBool("can-repeat", e.CanRepeat, d.CanRepeatCommands())
	checkBool("modified", e.Modified, d.Modified())
	checkString("undo-name", e.UndoName, d.UndoCommandName())
	checkString("redo-name", e.RedoName, d.RedoCommandName())
	checkInt("brushes", e.Brushes, len(d.Map().BrushIDs()))
	checkInt("entities", e.Entities, len(d.Map().EntityIDs())-1)
	checkInt("selected", e.Selected, len(d.SelectedIDs()))

	if e.Bounds != nil {
		ids, rerr := r.resolve([]string{e.Bounds.Node})
		if rerr != nil {
			return multierr.Append(err, rerr)
		}
		want := model.NewBBox(e.Bounds.Min.vec3(), e.Bounds.Max.vec3())
		got, ok := d.Map().NodeBounds(ids[0])
		switch {
		case !ok:
			err = multierr.Append(err, fmt.Errorf("bounds of %q: node is gone", e.Bounds.Node))
		case got != want:
			err = multierr.Append(err, fmt.Errorf("bounds of %q = %v, want %v", e.Bounds.Node, got, want))
		}
	}
	return err
}
