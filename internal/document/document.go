package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kobzarvs/qmap/internal/history"
	"github.com/kobzarvs/qmap/internal/model"
	"github.com/kobzarvs/qmap/internal/notify"
)

const DefaultTexture = "__TB_empty"

// Document is one open map together with its command history. All editing
// goes through the document; it is meant to be driven from one goroutine.
type Document struct {
	log            *zap.Logger
	m              *model.Map
	proc           *history.Processor
	path           string
	defaultTexture string

	changes      uint64
	selectionVer uint64
	conns        notify.Connections

	// ModificationStateChanged fires with Modified() after every commit,
	// undo, redo, save, load and clear.
	ModificationStateChanged notify.Notifier[bool]
	// TransactionDone fires with the transaction name after a commit or redo.
	TransactionDone notify.Notifier[string]
	// TransactionUndone fires with the transaction name after an undo.
	TransactionUndone notify.Notifier[string]
	// SelectionChanged fires with the selected ids when a commit, undo or
	// redo changed the selection.
	SelectionChanged notify.Notifier[[]string]
	// DocumentCleared fires when the content is replaced by Clear or Load.
	DocumentCleared notify.Notifier[*Document]
}

type options struct {
	log            *zap.Logger
	path           string
	maxEntries     int
	defaultTexture string
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMaxEntries bounds the undo history.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

// WithDefaultTexture sets the texture given to new brushes.
func WithDefaultTexture(name string) Option {
	return func(o *options) {
		if name != "" {
			o.defaultTexture = name
		}
	}
}

// WithPath names the file a new document will be saved to.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// New creates an empty, unmodified document.
func New(worldBounds model.BBox, opts ...Option) *Document {
	return newDocument(model.NewMap(worldBounds), opts)
}

func newDocument(m *model.Map, opts []Option) *Document {
	o := options{
		log:            zap.NewNop(),
		maxEntries:     history.DefaultMaxEntries,
		defaultTexture: DefaultTexture,
	}
	for _, opt := range opts {
		opt(&o)
	}
	d := &Document{
		log:            o.log,
		m:              m,
		path:           o.path,
		defaultTexture: o.defaultTexture,
	}
	d.proc = history.NewProcessor(
		history.WithLogger(o.log.Named("history")),
		history.WithMaxEntries(o.maxEntries),
		history.WithValidator(func() error { return d.m.Validate() }),
	)
	d.selectionVer = m.SelectionVersion()
	d.conns.Add(d.proc.TransactionDone.Connect(d.transactionDone))
	d.conns.Add(d.proc.TransactionUndone.Connect(d.transactionUndone))
	return d
}

// Close detaches the document from its processor. Observers of the
// document's own notifiers are left to disconnect themselves.
func (d *Document) Close() {
	d.conns.DisconnectAll()
}

func (d *Document) transactionDone(name string) {
	d.changes++
	d.ModificationStateChanged.Notify(d.Modified())
	d.TransactionDone.Notify(name)
	d.checkSelection()
}

func (d *Document) transactionUndone(name string) {
	d.changes++
	d.ModificationStateChanged.Notify(d.Modified())
	d.TransactionUndone.Notify(name)
	d.checkSelection()
}

func (d *Document) checkSelection() {
	if v := d.m.SelectionVersion(); v != d.selectionVer {
		d.selectionVer = v
		d.SelectionChanged.Notify(d.m.SelectedIDs())
	}
}

// Map gives read access to the document's map and is the target for
// commands executed through Begin or Transact.
func (d *Document) Map() *model.Map {
	return d.m
}

func (d *Document) Logger() *zap.Logger {
	return d.log
}

// Path returns the file the document was loaded from or last saved to.
func (d *Document) Path() string {
	return d.path
}

// Name returns the file name without extension, or "unnamed".
func (d *Document) Name() string {
	if d.path == "" {
		return "unnamed"
	}
	base := filepath.Base(d.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BackupKey identifies the document in the backup store: the absolute file
// path, or "unnamed" for a document that was never saved.
func (d *Document) BackupKey() string {
	if d.path == "" {
		return "unnamed"
	}
	return absPath(d.path)
}

// Modified reports whether the document differs from its last saved state.
func (d *Document) Modified() bool {
	return !d.proc.History().AtSavePoint()
}

// ModificationCount increases with every commit, undo and redo. It is used
// to tell whether anything happened since a point in time, not how far the
// content is from the saved state.
func (d *Document) ModificationCount() uint64 {
	return d.changes
}

// Begin opens a transaction on the document. Execute commands built against
// Map() on it and finish with Commit or Cancel.
func (d *Document) Begin(name string) (*history.Transaction, error) {
	return d.proc.Begin(name)
}

// Transact runs fn in a transaction that is committed when fn returns nil.
func (d *Document) Transact(name string, fn func(tx *history.Transaction) error) error {
	return d.proc.Transact(name, fn)
}

// Execute runs one command in the open transaction or in its own.
func (d *Document) Execute(cmd history.Command) error {
	return d.proc.Execute(cmd)
}

func (d *Document) InTransaction() bool {
	return d.proc.InTransaction()
}

func (d *Document) CanUndoCommand() bool {
	return d.proc.CanUndo()
}

func (d *Document) CanRedoCommand() bool {
	return d.proc.CanRedo()
}

// UndoCommandName returns the menu text for undo, e.g. "Undo Cut".
func (d *Document) UndoCommandName() string {
	if !d.CanUndoCommand() {
		return "Undo"
	}
	return "Undo " + d.proc.UndoName()
}

// RedoCommandName returns the menu text for redo, e.g. "Redo Cut".
func (d *Document) RedoCommandName() string {
	if !d.CanRedoCommand() {
		return "Redo"
	}
	return "Redo " + d.proc.RedoName()
}

// UndoCommand reverses the last transaction. It returns false when there
// was nothing to undo or the undo failed.
func (d *Document) UndoCommand() bool {
	if err := d.proc.Undo(); err != nil {
		d.logNoop("undo", err, history.ErrNothingToUndo)
		return false
	}
	return true
}

// RedoCommand re-applies the last undone transaction.
func (d *Document) RedoCommand() bool {
	if err := d.proc.Redo(); err != nil {
		d.logNoop("redo", err, history.ErrNothingToRedo)
		return false
	}
	return true
}

// logNoop logs a refused undo or redo. Nothing to do and an open
// transaction are expected states, not failures.
func (d *Document) logNoop(op string, err, noop error) {
	if errors.Is(err, noop) || errors.Is(err, history.ErrTransactionOpen) {
		d.log.Debug(op+" ignored", zap.Error(err))
		return
	}
	d.log.Error(op+" failed", zap.Error(err))
}

func (d *Document) CanRepeatCommands() bool {
	return d.proc.CanRepeat()
}

// RepeatCommands replays the last run of repeatable commands against the
// current selection. With nothing to repeat it returns
// history.ErrNothingToRepeat and changes nothing.
func (d *Document) RepeatCommands() error {
	return d.proc.Repeat()
}

func (d *Document) ClearRepeatableCommands() {
	d.proc.ClearRepeatable()
}

// SelectedIDs returns the current selection.
func (d *Document) SelectedIDs() []string {
	return d.m.SelectedIDs()
}

// HasSelection reports whether any node is selected.
func (d *Document) HasSelection() bool {
	return d.m.HasSelection()
}

// Snapshot returns a copy of the whole map.
func (d *Document) Snapshot() model.Snapshot {
	return d.m.Snapshot()
}

// replace swaps in new content and resets history and the repeat buffer.
// Content that does not match the file at path is marked modified.
func (d *Document) replace(m *model.Map, path string, saved bool) {
	d.proc.Clear()
	if !saved {
		d.proc.History().ForgetSavePoint()
	}
	d.m = m
	d.path = path
	d.changes++
	d.selectionVer = m.SelectionVersion()
	d.log.Info("document replaced",
		zap.String("path", path),
		zap.Int("entities", len(m.EntityIDs())),
		zap.Int("brushes", len(m.BrushIDs())))
	d.DocumentCleared.Notify(d)
	d.ModificationStateChanged.Notify(d.Modified())
	d.SelectionChanged.Notify(m.SelectedIDs())
}

// Clear replaces the content with an empty map of the same world bounds.
// Like Load it is refused while a transaction is open.
func (d *Document) Clear() error {
	if d.proc.InTransaction() {
		return fmt.Errorf("clear: %w", history.ErrTransactionOpen)
	}
	d.replace(model.NewMap(d.m.WorldBounds()), "", true)
	return nil
}
