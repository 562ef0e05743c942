package autosave

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/kobzarvs/qmap/internal/document"
	"github.com/kobzarvs/qmap/internal/model"
)

func openTestStore(t *testing.T, maxBackups int) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "autosave.db")
	s, err := OpenStore(context.Background(), path, maxBackups)
	if err != nil {
		t.Fatalf("OpenStore error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRetention(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		_, err := s.Put(ctx, Backup{
			Document:     "e1m1",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
			Modification: uint64(i),
			Data:         []byte(fmt.Sprintf("v%d", i)),
		})
		if err != nil {
			t.Fatalf("Put %d error: %v", i, err)
		}
	}
	if _, err := s.Put(ctx, Backup{Document: "dm3", CreatedAt: base, Modification: 1, Data: []byte("x")}); err != nil {
		t.Fatalf("Put dm3 error: %v", err)
	}

	list, err := s.List(ctx, "e1m1")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List len = %d, want 3", len(list))
	}
	for i, b := range list {
		if want := uint64(5 - i); b.Modification != want {
			t.Fatalf("List[%d].Modification = %d, want %d", i, b.Modification, want)
		}
		if b.Data != nil {
			t.Fatalf("List[%d] carries data", i)
		}
	}

	latest, err := s.Latest(ctx, "e1m1")
	if err != nil {
		t.Fatalf("Latest error: %v", err)
	}
	if string(latest.Data) != "v5" {
		t.Fatalf("Latest data = %q, want %q", latest.Data, "v5")
	}
	if !latest.CreatedAt.Equal(base.Add(5 * time.Minute)) {
		t.Fatalf("Latest CreatedAt = %v, want %v", latest.CreatedAt, base.Add(5*time.Minute))
	}

	other, err := s.List(ctx, "dm3")
	if err != nil {
		t.Fatalf("List dm3 error: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("List dm3 len = %d, want 1", len(other))
	}
}

func TestStoreLatestMissing(t *testing.T) {
	s := openTestStore(t, 3)
	if _, err := s.Latest(context.Background(), "nothing"); !errors.Is(err, ErrNoBackup) {
		t.Fatalf("Latest error = %v, want %v", err, ErrNoBackup)
	}
}

func TestAutosaverWritesToStore(t *testing.T) {
	s := openTestStore(t, 2)
	clk := newClock()
	doc := &fakeDoc{name: "start"}
	a := NewAutosaver(doc, s, 0, WithClock(clk.now))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		doc.edit()
		clk.advance(time.Second)
		if !a.TriggerAutosave(ctx) {
			t.Fatalf("TriggerAutosave %d = false", i)
		}
	}
	list, err := s.List(ctx, "start")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List len = %d, want 2", len(list))
	}
	if list[0].Modification != doc.count {
		t.Fatalf("newest backup modification = %d, want %d", list[0].Modification, doc.count)
	}
}

func TestSameNamedDocumentsKeepSeparateBackups(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()
	dir := t.TempDir()
	world := model.CubeAround(model.V(0, 0, 0), 1024)

	var docs []*document.Document
	for i, sub := range []string{"id1", "mymod"} {
		d := document.New(world, document.WithPath(filepath.Join(dir, sub, "start.map")))
		defer d.Close()
		for j := 0; j <= i; j++ {
			if _, err := d.CreateBrush(model.CubeAround(model.V(float64(64*j), 0, 0), 16)); err != nil {
				t.Fatalf("CreateBrush error: %v", err)
			}
		}
		if !NewAutosaver(d, s, 0).TriggerAutosave(ctx) {
			t.Fatalf("TriggerAutosave %s = false", sub)
		}
		docs = append(docs, d)
	}
	if docs[0].Name() != docs[1].Name() {
		t.Fatalf("names %q and %q differ", docs[0].Name(), docs[1].Name())
	}

	for _, d := range docs {
		latest, err := s.Latest(ctx, d.BackupKey())
		if err != nil {
			t.Fatalf("Latest(%s) error: %v", d.BackupKey(), err)
		}
		var want bytes.Buffer
		if err := d.SaveTo(&want); err != nil {
			t.Fatalf("SaveTo error: %v", err)
		}
		if !bytes.Equal(latest.Data, want.Bytes()) {
			t.Fatalf("backup of %s holds another document", d.Path())
		}
	}
	if _, err := s.Latest(ctx, "start"); !errors.Is(err, ErrNoBackup) {
		t.Fatalf("Latest(start) error = %v, want %v", err, ErrNoBackup)
	}
}
