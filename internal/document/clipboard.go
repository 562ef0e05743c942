package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kobzarvs/qmap/internal/command"
	"github.com/kobzarvs/qmap/internal/history"
	"github.com/kobzarvs/qmap/internal/model"
)

var ErrNothingToPaste = errors.New("clipboard holds no map data")

// Clipboard is the system clipboard as seen by the document. The atotto
// clipboard package satisfies it through a small adapter.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// Copy puts the selected nodes and their entities on the clipboard.
func (d *Document) Copy(cb Clipboard) error {
	data, err := d.selectionData()
	if err != nil {
		return err
	}
	if err := cb.WriteAll(data); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}

func (d *Document) selectionData() (string, error) {
	ids := d.m.SelectedIDs()
	if len(ids) == 0 {
		return "", command.ErrNothingSelected
	}
	data, err := json.Marshal(d.m.Fragment(ids))
	if err != nil {
		return "", fmt.Errorf("copy: %w", err)
	}
	return string(data), nil
}

// Cut deletes the selection as one "Cut" transaction and puts it on the
// clipboard. The clipboard is written only once the deletion went through;
// if writing fails the deletion is reversed.
func (d *Document) Cut(cb Clipboard) error {
	return d.proc.Transact("Cut", func(tx *history.Transaction) error {
		data, err := d.selectionData()
		if err != nil {
			return err
		}
		if err := tx.Execute(command.NewDeleteObjects(d.m, d.m.SelectedIDs())); err != nil {
			return err
		}
		if err := cb.WriteAll(data); err != nil {
			return fmt.Errorf("cut: %w", err)
		}
		return nil
	})
}

func (d *Document) readClipboard(cb Clipboard) (model.Snapshot, error) {
	text, err := cb.ReadAll()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("paste: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Snapshot{}, ErrNothingToPaste
	}
	var s model.Snapshot
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrNothingToPaste, err)
	}
	if len(s.Entities) == 0 {
		return model.Snapshot{}, ErrNothingToPaste
	}
	return s, nil
}

func (d *Document) pasteCommand(cb Clipboard) (*command.AddNodes, error) {
	s, err := d.readClipboard(cb)
	if err != nil {
		return nil, err
	}
	entities, brushes := s.Instantiate(d.m.WorldspawnID())
	if len(entities) == 0 && len(brushes) == 0 {
		return nil, ErrNothingToPaste
	}
	return command.NewAddNodes(d.m, "Paste", entities, brushes, true), nil
}

// PasteAtOriginalPosition inserts the clipboard content where it was copied
// from and selects it. Like the other edits it joins an open transaction.
func (d *Document) PasteAtOriginalPosition(cb Clipboard) error {
	add, err := d.pasteCommand(cb)
	if err != nil {
		return err
	}
	return d.proc.Execute(add)
}

// PasteWithOffset inserts the clipboard content moved by delta. If the moved
// content does not fit, the paste is cancelled and nothing is recorded.
func (d *Document) PasteWithOffset(cb Clipboard, delta model.Vec3) error {
	add, err := d.pasteCommand(cb)
	if err != nil {
		return err
	}
	err = d.proc.Transact("Paste", func(tx *history.Transaction) error {
		if err := tx.Execute(add); err != nil {
			return err
		}
		return tx.Execute(command.NewTranslateObjects(d.m, add.Added(), delta))
	})
	if err != nil {
		d.log.Warn("paste rejected", zap.Stringer("offset", delta), zap.Error(err))
	}
	return err
}
