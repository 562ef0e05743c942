// Package autosave writes periodic backups of an open document.
//
// The Autosaver decides whether a backup is due; the Scheduler decides when
// it is safe to ask, based on user input. Neither runs goroutines of its
// own: the loop that owns the document polls them, so backups never
// interleave with an open transaction.
package autosave

import (
	"bytes"
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

// Source is the document as seen by the autosaver.
type Source interface {
	Name() string
	// BackupKey tells documents apart in the store; two files with the
	// same name in different directories must not share one.
	BackupKey() string
	Modified() bool
	ModificationCount() uint64
	InTransaction() bool
	SaveTo(w io.Writer) error
}

// Backups receives finished backups. *Store implements it.
type Backups interface {
	Put(ctx context.Context, b Backup) (int64, error)
}

type Autosaver struct {
	doc          Source
	backups      Backups
	log          *zap.Logger
	saveInterval time.Duration
	now          func() time.Time

	lastSave  time.Time
	lastCount uint64
}

type Option func(*Autosaver)

func WithLogger(l *zap.Logger) Option {
	return func(a *Autosaver) {
		if l != nil {
			a.log = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Autosaver) {
		a.now = now
	}
}

// NewAutosaver creates an autosaver for doc. The first backup is due one
// save interval after creation.
func NewAutosaver(doc Source, backups Backups, saveInterval time.Duration, opts ...Option) *Autosaver {
	a := &Autosaver{
		doc:          doc,
		backups:      backups,
		log:          zap.NewNop(),
		saveInterval: saveInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.lastSave = a.now()
	a.lastCount = doc.ModificationCount()
	return a
}

// TriggerAutosave writes a backup if the document is modified, has changed
// since the last backup and the save interval has elapsed. It reports
// whether a backup was written. Failures are logged and otherwise ignored.
func (a *Autosaver) TriggerAutosave(ctx context.Context) bool {
	if a.now().Sub(a.lastSave) < a.saveInterval {
		return false
	}
	return a.save(ctx)
}

// Flush writes a backup if one is needed, regardless of the save interval.
func (a *Autosaver) Flush(ctx context.Context) bool {
	return a.save(ctx)
}

func (a *Autosaver) save(ctx context.Context) bool {
	if !a.doc.Modified() {
		return false
	}
	count := a.doc.ModificationCount()
	if count == a.lastCount {
		return false
	}
	if a.doc.InTransaction() {
		a.log.Debug("autosave deferred, transaction open")
		return false
	}

	var buf bytes.Buffer
	if err := a.doc.SaveTo(&buf); err != nil {
		a.log.Error("autosave failed", zap.String("document", a.doc.Name()), zap.Error(err))
		return false
	}
	now := a.now()
	id, err := a.backups.Put(ctx, Backup{
		Document:     a.doc.BackupKey(),
		CreatedAt:    now,
		Modification: count,
		Data:         buf.Bytes(),
	})
	if err != nil {
		a.log.Error("autosave failed", zap.String("document", a.doc.Name()), zap.Error(err))
		return false
	}
	a.lastSave = now
	a.lastCount = count
	a.log.Info("autosaved",
		zap.String("document", a.doc.Name()),
		zap.Int64("backup", id),
		zap.Uint64("modification", count),
		zap.Int("bytes", buf.Len()))
	return true
}
