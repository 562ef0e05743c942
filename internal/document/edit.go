package document

import (
	"go.uber.org/zap"

	"github.com/kobzarvs/qmap/internal/command"
	"github.com/kobzarvs/qmap/internal/history"
	"github.com/kobzarvs/qmap/internal/model"
)

// CreateBrush adds a world brush with the default texture and selects it.
func (d *Document) CreateBrush(bounds model.BBox) (string, error) {
	b := model.NewBrush(d.m.WorldspawnID(), bounds, d.defaultTexture)
	cmd := command.NewAddNodes(d.m, "Create Brush", nil, []model.Brush{b}, true)
	if err := d.proc.Execute(cmd); err != nil {
		return "", err
	}
	return b.ID, nil
}

// CreatePointEntity adds a point entity and selects it.
func (d *Document) CreatePointEntity(classname string, origin model.Vec3) (string, error) {
	e := model.NewPointEntity(classname, origin)
	cmd := command.NewAddNodes(d.m, "Create Entity", []*model.Entity{e}, nil, true)
	if err := d.proc.Execute(cmd); err != nil {
		return "", err
	}
	return e.ID, nil
}

// SelectNodes makes ids the selection.
func (d *Document) SelectNodes(ids ...string) error {
	return d.proc.Execute(command.NewReplaceSelection(d.m, ids...))
}

func (d *Document) SelectAll() error {
	return d.proc.Execute(command.NewSelectAll(d.m))
}

func (d *Document) DeselectAll() error {
	return d.proc.Execute(command.NewDeselectAll(d.m))
}

// SelectInverse selects what is not selected and deselects the rest.
func (d *Document) SelectInverse() error {
	return d.proc.Execute(command.NewSelectInverse(d.m))
}

// SelectTouching replaces a selection of brushes with the nodes touching
// them. With deleteSelectors the selecting brushes are removed in the same
// transaction.
func (d *Document) SelectTouching(deleteSelectors bool) error {
	return d.selectByBrushes(command.NewSelectTouching(d.m), deleteSelectors)
}

// SelectInside replaces a selection of brushes with the nodes inside them.
func (d *Document) SelectInside(deleteSelectors bool) error {
	return d.selectByBrushes(command.NewSelectInside(d.m), deleteSelectors)
}

func (d *Document) selectByBrushes(sel *command.Selection, deleteSelectors bool) error {
	selectors := d.m.SelectedIDs()
	if !deleteSelectors {
		return d.proc.Execute(sel)
	}
	return d.proc.Transact(sel.Name(), func(tx *history.Transaction) error {
		if err := tx.Execute(sel); err != nil {
			return err
		}
		return tx.Execute(command.NewDeleteObjects(d.m, selectors))
	})
}

// DeleteObjects removes the selected nodes.
func (d *Document) DeleteObjects() error {
	return d.proc.Execute(command.NewDeleteObjects(d.m, d.m.SelectedIDs()))
}

// DuplicateObjects copies the selected nodes and selects the copies.
func (d *Document) DuplicateObjects() error {
	return d.proc.Execute(command.NewDuplicateObjects(d.m, d.m.SelectedIDs()))
}

// TranslateObjects moves the selection by delta. Like the other transforms
// it reports failure as false; the reason is logged.
func (d *Document) TranslateObjects(delta model.Vec3) bool {
	return d.transform(command.NewTranslateObjects(d.m, d.m.SelectedIDs(), delta))
}

func (d *Document) FlipObjects(axis model.Axis) bool {
	return d.transform(command.NewFlipObjects(d.m, d.m.SelectedIDs(), axis))
}

func (d *Document) RotateObjects90(axis model.Axis, clockwise bool) bool {
	return d.transform(command.NewRotateObjects90(d.m, d.m.SelectedIDs(), axis, clockwise))
}

func (d *Document) transform(cmd history.Command) bool {
	if err := d.proc.Execute(cmd); err != nil {
		d.log.Warn("transform rejected", zap.String("command", cmd.Name()), zap.Error(err))
		return false
	}
	return true
}

// SetProperty sets key on every selected entity; a nil value removes it.
// Selecting a brush addresses the entity that owns it.
func (d *Document) SetProperty(key string, value *string) error {
	ids := command.SelectedEntities(d.m)
	if len(ids) == 0 {
		return command.ErrNothingSelected
	}
	return d.proc.Execute(command.NewSetProperty(d.m, ids, key, value))
}
