package history

import (
	"errors"
	"time"

	"go.uber.org/multierr"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

const DefaultMaxEntries = 1000

// Entry is one committed transaction: the commands it applied, in order.
type Entry struct {
	Name      string
	Commands  []Command
	Timestamp time.Time
}

func (e *Entry) undo() error {
	for i := len(e.Commands) - 1; i >= 0; i-- {
		if err := e.Commands[i].Undo(); err != nil {
			// put back what was already reversed
			var redoErr error
			for j := i + 1; j < len(e.Commands); j++ {
				redoErr = multierr.Append(redoErr, e.Commands[j].Do())
			}
			return multierr.Append(err, redoErr)
		}
	}
	return nil
}

func (e *Entry) redo() error {
	for i, c := range e.Commands {
		if err := c.Do(); err != nil {
			var undoErr error
			for j := i - 1; j >= 0; j-- {
				undoErr = multierr.Append(undoErr, e.Commands[j].Undo())
			}
			return multierr.Append(err, undoErr)
		}
	}
	return nil
}

// History is a linear undo history. Entries below the cursor can be undone,
// entries at or above it can be redone.
type History struct {
	entries    []*Entry
	cursor     int
	maxEntries int

	// savePoint is the cursor position matching the saved document, or -1
	// once that position can no longer be reached.
	savePoint int
}

func NewHistory(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{maxEntries: maxEntries}
}

// Push records e at the cursor, dropping every redoable entry.
func (h *History) Push(e *Entry) {
	if h.savePoint > h.cursor {
		h.savePoint = -1
	}
	h.entries = append(h.entries[:h.cursor], e)
	h.cursor++

	if excess := len(h.entries) - h.maxEntries; excess > 0 {
		h.entries = h.entries[excess:]
		h.cursor -= excess
		if h.savePoint >= 0 {
			h.savePoint -= excess
			if h.savePoint < 0 {
				h.savePoint = -1
			}
		}
	}
}

// Undo reverses the entry below the cursor. On failure the cursor stays
// where it was.
func (h *History) Undo() (*Entry, error) {
	if h.cursor == 0 {
		return nil, ErrNothingToUndo
	}
	e := h.entries[h.cursor-1]
	if err := e.undo(); err != nil {
		return nil, err
	}
	h.cursor--
	return e, nil
}

// Redo re-applies the entry at the cursor.
func (h *History) Redo() (*Entry, error) {
	if h.cursor == len(h.entries) {
		return nil, ErrNothingToRedo
	}
	e := h.entries[h.cursor]
	if err := e.redo(); err != nil {
		return nil, err
	}
	h.cursor++
	return e, nil
}

func (h *History) CanUndo() bool {
	return h.cursor > 0
}

func (h *History) CanRedo() bool {
	return h.cursor < len(h.entries)
}

// UndoName returns the name of the entry Undo would reverse.
func (h *History) UndoName() string {
	if !h.CanUndo() {
		return ""
	}
	return h.entries[h.cursor-1].Name
}

// RedoName returns the name of the entry Redo would re-apply.
func (h *History) RedoName() string {
	if !h.CanRedo() {
		return ""
	}
	return h.entries[h.cursor].Name
}

func (h *History) UndoCount() int {
	return h.cursor
}

func (h *History) RedoCount() int {
	return len(h.entries) - h.cursor
}

func (h *History) MaxEntries() int {
	return h.maxEntries
}

// MarkSaved records the current position as matching the saved document.
func (h *History) MarkSaved() {
	h.savePoint = h.cursor
}

// AtSavePoint reports whether undo/redo has returned to the saved state.
func (h *History) AtSavePoint() bool {
	return h.savePoint == h.cursor
}

// ForgetSavePoint marks every position as differing from the saved
// document, e.g. after restoring a backup.
func (h *History) ForgetSavePoint() {
	h.savePoint = -1
}

// Clear drops all entries. The empty history counts as saved.
func (h *History) Clear() {
	h.entries = nil
	h.cursor = 0
	h.savePoint = 0
}
