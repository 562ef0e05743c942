package history

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kobzarvs/qmap/internal/notify"
)

var ErrNothingToRepeat = errors.New("nothing to repeat")

const RepeatName = "Repeat Commands"

// Processor is the single writer of a document: it runs commands inside
// transactions, keeps the undo history and the repeatable run, and announces
// finished transactions.
//
// Notifications are sent after the history has been updated, so observers
// can query CanUndo, UndoName and friends.
type Processor struct {
	log      *zap.Logger
	history  *History
	repeat   RepeatBuffer
	open     *Transaction
	validate func() error

	repeating bool

	// TransactionDone fires with the entry name after a commit or redo.
	TransactionDone notify.Notifier[string]
	// TransactionUndone fires with the entry name after an undo.
	TransactionUndone notify.Notifier[string]
}

type Option func(*Processor)

func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

func WithMaxEntries(n int) Option {
	return func(p *Processor) {
		p.history = NewHistory(n)
	}
}

// WithValidator installs a check run before every commit.
func WithValidator(fn func() error) Option {
	return func(p *Processor) {
		p.validate = fn
	}
}

func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		log:     zap.NewNop(),
		history: NewHistory(DefaultMaxEntries),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Begin opens a transaction. Only one transaction may be open at a time.
func (p *Processor) Begin(name string) (*Transaction, error) {
	if p.open != nil {
		p.log.DPanic("begin while a transaction is open",
			zap.String("open", p.open.Name()),
			zap.String("requested", name))
		return nil, fmt.Errorf("begin %q: %w", name, ErrTransactionOpen)
	}
	t := &Transaction{p: p, name: name}
	p.open = t
	return t, nil
}

// InTransaction reports whether a transaction is open.
func (p *Processor) InTransaction() bool {
	return p.open != nil
}

// Execute runs cmd inside the open transaction, or in a transaction of its
// own named after the command when none is open.
func (p *Processor) Execute(cmd Command) error {
	if p.open != nil {
		return p.open.Execute(cmd)
	}
	return p.Transact(cmd.Name(), func(tx *Transaction) error {
		return tx.Execute(cmd)
	})
}

// Transact runs fn inside a new transaction, committing when fn returns nil
// and rolling back otherwise. With a transaction already open, fn joins it
// instead: name is ignored, nothing is committed, and a failing fn reverses
// only its own commands.
func (p *Processor) Transact(name string, fn func(tx *Transaction) error) error {
	if p.open != nil {
		return p.open.scope(fn)
	}
	tx, err := p.Begin(name)
	if err != nil {
		return err
	}
	defer tx.Close()
	if err := fn(tx); err != nil {
		return err
	}
	if tx.State() != TxOpen {
		return nil
	}
	return tx.Commit()
}

func (p *Processor) committed(t *Transaction) {
	p.closed(t)
	e := t.entry()
	if e == nil {
		p.log.Debug("transaction had no effect", zap.String("transaction", t.Name()))
		return
	}
	e.Timestamp = time.Now()
	p.history.Push(e)
	if !p.repeating {
		for _, c := range e.Commands {
			p.trackRepeatable(c)
		}
	}
	p.log.Debug("transaction done", zap.String("transaction", e.Name), zap.Int("commands", len(e.Commands)))
	p.TransactionDone.Notify(e.Name)
}

func (p *Processor) closed(t *Transaction) {
	if p.open == t {
		p.open = nil
	}
}

func (p *Processor) trackRepeatable(c Command) {
	if isRepeatDelimiter(c) {
		p.repeat.ClearOnNextPush()
		return
	}
	if r, ok := c.(Repeatable); ok {
		p.repeat.Push(r)
	}
}

// Undo reverses the most recent entry. It returns ErrNothingToUndo when
// there is none, which callers may treat as a no-op.
func (p *Processor) Undo() error {
	if p.open != nil {
		return fmt.Errorf("undo: %w", ErrTransactionOpen)
	}
	e, err := p.history.Undo()
	if err != nil {
		return err
	}
	p.log.Debug("transaction undone", zap.String("transaction", e.Name))
	p.TransactionUndone.Notify(e.Name)
	return nil
}

// Redo re-applies the most recently undone entry.
func (p *Processor) Redo() error {
	if p.open != nil {
		return fmt.Errorf("redo: %w", ErrTransactionOpen)
	}
	e, err := p.history.Redo()
	if err != nil {
		return err
	}
	p.log.Debug("transaction redone", zap.String("transaction", e.Name))
	p.TransactionDone.Notify(e.Name)
	return nil
}

func (p *Processor) CanUndo() bool    { return p.open == nil && p.history.CanUndo() }
func (p *Processor) CanRedo() bool    { return p.open == nil && p.history.CanRedo() }
func (p *Processor) UndoName() string { return p.history.UndoName() }
func (p *Processor) RedoName() string { return p.history.RedoName() }

func (p *Processor) CanRepeat() bool {
	return p.open == nil && p.repeat.Len() > 0
}

// Repeat replays the repeatable run as one new transaction against the
// current selection. If any command cannot be repeated nothing is recorded.
func (p *Processor) Repeat() error {
	if p.open != nil {
		return fmt.Errorf("repeat: %w", ErrTransactionOpen)
	}
	cmds := p.repeat.Commands()
	if len(cmds) == 0 {
		return ErrNothingToRepeat
	}
	p.repeating = true
	defer func() { p.repeating = false }()

	return p.Transact(RepeatName, func(tx *Transaction) error {
		for _, c := range cmds {
			next, err := c.Repeat()
			if err != nil {
				return fmt.Errorf("repeat %q: %w", c.Name(), err)
			}
			if err := tx.Execute(next); err != nil {
				return fmt.Errorf("repeat %q: %w", c.Name(), err)
			}
		}
		return nil
	})
}

// ClearRepeatable forgets the repeatable run.
func (p *Processor) ClearRepeatable() {
	p.repeat.Clear()
}

// RepeatableCount returns the length of the repeatable run.
func (p *Processor) RepeatableCount() int {
	return p.repeat.Len()
}

// History exposes the underlying history for save-point bookkeeping.
func (p *Processor) History() *History {
	return p.history
}

// Clear drops history and the repeatable run, e.g. when the document is
// replaced. An open transaction is abandoned without rollback.
func (p *Processor) Clear() {
	if p.open != nil {
		p.open.state = TxCancelled
		p.open = nil
	}
	p.history.Clear()
	p.repeat.Clear()
}
