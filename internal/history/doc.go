// Package history implements the command, transaction and undo/redo core of
// a map document.
//
// # Commands
//
// A Command applies one reversible mutation and can undo it. Commands capture
// the state they need on Do, so Undo restores exactly what was there before.
//
// # Transactions
//
// Every command runs inside a Transaction. Commit turns the applied commands
// into one history entry; Cancel (or Close on an open transaction) reverses
// them in reverse order. Only one transaction may be open per Processor.
//
//	err := p.Transact("Paste", func(tx *history.Transaction) error {
//	    if err := tx.Execute(add); err != nil {
//	        return err
//	    }
//	    return tx.Execute(move)
//	})
//
// # History
//
// History is linear: committing after an undo discards the redo tail.
//
// # Repeating
//
// Repeatable commands are collected into a run that Processor.Repeat replays
// against the current selection. Commands implementing RepeatDelimiter, such
// as selection changes, start a new run with the next repeatable command.
package history
