package autosave

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeDoc struct {
	name     string
	key      string
	modified bool
	count    uint64
	inTx     bool
	saveErr  error
}

func (d *fakeDoc) Name() string              { return d.name }

func (d *fakeDoc) BackupKey() string {
	if d.key == "" {
		return d.name
	}
	return d.key
}

func (d *fakeDoc) Modified() bool            { return d.modified }
func (d *fakeDoc) ModificationCount() uint64 { return d.count }
func (d *fakeDoc) InTransaction() bool       { return d.inTx }

func (d *fakeDoc) SaveTo(w io.Writer) error {
	if d.saveErr != nil {
		return d.saveErr
	}
	_, err := io.WriteString(w, `{"name":"`+d.name+`"}`)
	return err
}

func (d *fakeDoc) edit() {
	d.modified = true
	d.count++
}

type memBackups struct {
	puts []Backup
	err  error
}

func (m *memBackups) Put(_ context.Context, b Backup) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.puts = append(m.puts, b)
	return int64(len(m.puts)), nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTriggerAutosaveConditions(t *testing.T) {
	clk := newClock()
	doc := &fakeDoc{name: "e1m1"}
	backups := &memBackups{}
	a := NewAutosaver(doc, backups, 10*time.Minute, WithClock(clk.now))
	ctx := context.Background()

	clk.advance(11 * time.Minute)
	if a.TriggerAutosave(ctx) {
		t.Fatalf("TriggerAutosave saved an unmodified document")
	}

	doc.edit()
	clk.advance(time.Minute)
	if !a.TriggerAutosave(ctx) {
		t.Fatalf("TriggerAutosave = false for a modified document past the interval")
	}
	if len(backups.puts) != 1 {
		t.Fatalf("backups = %d, want 1", len(backups.puts))
	}
	got := backups.puts[0]
	if got.Document != "e1m1" || got.Modification != doc.count || string(got.Data) != `{"name":"e1m1"}` {
		t.Fatalf("backup = %#v", got)
	}

	// no change since the last backup
	clk.advance(20 * time.Minute)
	if a.TriggerAutosave(ctx) {
		t.Fatalf("TriggerAutosave saved an unchanged document")
	}

	// changed, but the interval has not elapsed since the last backup
	doc.edit()
	a.lastSave = clk.now()
	clk.advance(5 * time.Minute)
	if a.TriggerAutosave(ctx) {
		t.Fatalf("TriggerAutosave saved before the interval elapsed")
	}
	clk.advance(5 * time.Minute)
	if !a.TriggerAutosave(ctx) {
		t.Fatalf("TriggerAutosave = false once the interval elapsed")
	}
}

func TestAutosaveDeferredDuringTransaction(t *testing.T) {
	clk := newClock()
	doc := &fakeDoc{name: "dm2"}
	backups := &memBackups{}
	a := NewAutosaver(doc, backups, 0, WithClock(clk.now))

	doc.edit()
	doc.inTx = true
	if a.Flush(context.Background()) {
		t.Fatalf("Flush saved while a transaction was open")
	}
	doc.inTx = false
	if !a.Flush(context.Background()) {
		t.Fatalf("Flush = false after the transaction closed")
	}
}

func TestAutosaveFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	clk := newClock()
	doc := &fakeDoc{name: "start"}
	backups := &memBackups{err: errors.New("disk full")}
	a := NewAutosaver(doc, backups, 0, WithClock(clk.now), WithLogger(zap.New(core)))

	doc.edit()
	if a.TriggerAutosave(context.Background()) {
		t.Fatalf("TriggerAutosave = true on store failure")
	}
	entries := logs.FilterMessage("autosave failed").All()
	if len(entries) != 1 {
		t.Fatalf("failure log entries = %d, want 1", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("failure logged at %v, want error", entries[0].Level)
	}

	backups.err = nil
	doc.saveErr = errors.New("encode")
	if a.TriggerAutosave(context.Background()) {
		t.Fatalf("TriggerAutosave = true on encode failure")
	}
	if n := logs.FilterMessage("autosave failed").Len(); n != 2 {
		t.Fatalf("failure log entries = %d, want 2", n)
	}

	// a failed attempt does not count as a backup
	doc.saveErr = nil
	if !a.TriggerAutosave(context.Background()) {
		t.Fatalf("TriggerAutosave = false after failures cleared")
	}
}

func TestSchedulerWaitsForQuiescence(t *testing.T) {
	clk := newClock()
	doc := &fakeDoc{name: "e1m1"}
	backups := &memBackups{}
	a := NewAutosaver(doc, backups, 0, WithClock(clk.now))
	s := NewScheduler(a, 2*time.Second)
	ctx := context.Background()

	doc.edit()
	s.NoteInput()
	clk.advance(time.Second)
	if s.Poll(ctx) {
		t.Fatalf("Poll saved within the idle window")
	}

	clk.advance(time.Second)
	s.SetButtonHeld(true)
	clk.advance(5 * time.Second)
	if s.Poll(ctx) {
		t.Fatalf("Poll saved while a button was held")
	}

	s.SetButtonHeld(false)
	if s.Idle() {
		t.Fatalf("Idle = true right after button release")
	}
	clk.advance(2 * time.Second)
	if !s.Poll(ctx) {
		t.Fatalf("Poll = false after quiescence")
	}
	if len(backups.puts) != 1 {
		t.Fatalf("backups = %d, want 1", len(backups.puts))
	}
}

func TestSchedulerPollEvery(t *testing.T) {
	clk := newClock()
	doc := &fakeDoc{name: "e1m1"}
	backups := &memBackups{}
	a := NewAutosaver(doc, backups, 0, WithClock(clk.now))
	s := NewScheduler(a, time.Second)
	ctx := context.Background()

	clk.advance(2 * time.Second)
	doc.edit()
	if !s.PollEvery(ctx, time.Second) {
		t.Fatalf("first PollEvery = false")
	}
	doc.edit()
	clk.advance(500 * time.Millisecond)
	if s.PollEvery(ctx, time.Second) {
		t.Fatalf("PollEvery polled before the check interval")
	}
	clk.advance(500 * time.Millisecond)
	if !s.PollEvery(ctx, time.Second) {
		t.Fatalf("PollEvery = false after the check interval")
	}
}

func TestSchedulerShutdownFinalBackup(t *testing.T) {
	clk := newClock()
	doc := &fakeDoc{name: "e1m1"}
	backups := &memBackups{}
	a := NewAutosaver(doc, backups, time.Hour, WithClock(clk.now))
	s := NewScheduler(a, time.Hour)

	doc.edit()
	s.NoteInput()
	if !s.Shutdown(context.Background()) {
		t.Fatalf("Shutdown = false for a modified document")
	}
	if s.Shutdown(context.Background()) {
		t.Fatalf("second Shutdown wrote another backup")
	}
	doc.edit()
	clk.advance(2 * time.Hour)
	if s.Poll(context.Background()) {
		t.Fatalf("Poll after Shutdown wrote a backup")
	}
	if len(backups.puts) != 1 {
		t.Fatalf("backups = %d, want 1", len(backups.puts))
	}
}
