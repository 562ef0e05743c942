package history

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	ErrTransactionOpen   = errors.New("a transaction is already open")
	ErrTransactionClosed = errors.New("transaction is not open")
)

type TxState int

const (
	TxOpen TxState = iota
	TxCommitted
	TxCancelled
)

func (s TxState) String() string {
	switch s {
	case TxOpen:
		return "open"
	case TxCommitted:
		return "committed"
	case TxCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Transaction batches commands into one undo entry. It must end with Commit
// or Cancel; Close cancels a transaction that is still open, so
//
//	tx, err := p.Begin("Move")
//	if err != nil { ... }
//	defer tx.Close()
//
// rolls back on every early return or panic.
type Transaction struct {
	p     *Processor
	name  string
	state TxState
	done  []Command
	err   error
}

// Name returns the transaction name. A transaction begun without one is
// named after its first command that changed something, or its first
// command when none did.
func (t *Transaction) Name() string {
	if t.name != "" || len(t.done) == 0 {
		return t.name
	}
	for _, c := range t.done {
		if hasEffect(c) {
			return c.Name()
		}
	}
	return t.done[0].Name()
}

func (t *Transaction) State() TxState {
	return t.state
}

// Len returns the number of commands applied so far.
func (t *Transaction) Len() int {
	return len(t.done)
}

// Err returns the first command failure, if any.
func (t *Transaction) Err() error {
	return t.err
}

// Execute applies cmd as part of the transaction. After a command has
// failed the transaction refuses further commands and can only be cancelled
// or committed, which rolls it back.
func (t *Transaction) Execute(cmd Command) error {
	if t.state != TxOpen {
		return fmt.Errorf("execute %q: %w", cmd.Name(), ErrTransactionClosed)
	}
	if t.err != nil {
		return fmt.Errorf("execute %q: transaction %q already failed: %w", cmd.Name(), t.Name(), t.err)
	}
	if err := cmd.Do(); err != nil {
		t.err = err
		t.p.log.Debug("command failed",
			zap.String("transaction", t.Name()),
			zap.String("command", cmd.Name()),
			zap.Error(err))
		return err
	}
	t.done = append(t.done, cmd)
	return nil
}

// Commit records the applied commands as a single history entry. If a
// command failed or the result does not validate, everything is rolled back
// and the cause returned. A transaction without effective commands commits
// without creating an entry.
func (t *Transaction) Commit() error {
	if t.state != TxOpen {
		return ErrTransactionClosed
	}
	if t.err != nil {
		cause := t.err
		return multierr.Append(cause, t.rollback())
	}
	if t.p.validate != nil {
		if err := t.p.validate(); err != nil {
			return multierr.Append(err, t.rollback())
		}
	}
	t.state = TxCommitted
	t.p.committed(t)
	return nil
}

// Cancel reverses every applied command in reverse order and discards the
// transaction.
func (t *Transaction) Cancel() error {
	if t.state != TxOpen {
		return ErrTransactionClosed
	}
	return t.rollback()
}

// Close cancels the transaction if it is still open.
func (t *Transaction) Close() {
	if t.state == TxOpen {
		if err := t.rollback(); err != nil {
			t.p.log.Error("rollback failed", zap.String("transaction", t.Name()), zap.Error(err))
		}
	}
}

// scope runs fn as part of the open transaction. If fn fails, the commands
// it applied are reversed and the transaction continues as before fn.
func (t *Transaction) scope(fn func(tx *Transaction) error) error {
	mark := len(t.done)
	failed := t.err
	if err := fn(t); err != nil {
		if t.state != TxOpen {
			return err
		}
		rerr := t.undoTo(mark)
		if rerr == nil {
			t.err = failed
		}
		t.p.log.Debug("scope rolled back",
			zap.String("transaction", t.Name()),
			zap.Int("kept", mark),
			zap.Error(err))
		return multierr.Append(err, rerr)
	}
	return nil
}

// undoTo reverses the commands applied after the first n.
func (t *Transaction) undoTo(n int) error {
	var err error
	for i := len(t.done) - 1; i >= n; i-- {
		err = multierr.Append(err, t.done[i].Undo())
	}
	t.done = t.done[:n]
	return err
}

func (t *Transaction) rollback() error {
	name, count := t.Name(), len(t.done)
	err := t.undoTo(0)
	t.p.log.Debug("transaction cancelled", zap.String("transaction", name), zap.Int("commands", count))
	t.state = TxCancelled
	t.p.closed(t)
	return err
}

func (t *Transaction) entry() *Entry {
	var cmds []Command
	for _, c := range t.done {
		if hasEffect(c) {
			cmds = append(cmds, c)
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return &Entry{Name: t.Name(), Commands: cmds}
}
