package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kobzarvs/qmap/internal/history"
	"github.com/kobzarvs/qmap/internal/model"
)

var ErrExportOverDocument = errors.New("cannot export over the document's own file")

// Open creates a document from a map file written by Save.
func Open(path string, opts ...Option) (*Document, error) {
	m, err := readMap(path)
	if err != nil {
		return nil, err
	}
	d := newDocument(m, opts)
	d.path = path
	return d, nil
}

func readMap(path string) (*model.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := decodeMap(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

func decodeMap(r io.Reader) (*model.Map, error) {
	var s model.Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, err
	}
	return model.FromSnapshot(s)
}

// Load replaces the content with the map stored at path. History and the
// repeat buffer are cleared. On error the document is left untouched.
func (d *Document) Load(path string) error {
	if d.proc.InTransaction() {
		return fmt.Errorf("load %s: %w", path, history.ErrTransactionOpen)
	}
	m, err := readMap(path)
	if err != nil {
		return err
	}
	d.replace(m, path, true)
	return nil
}

// Restore replaces the content with a backup written by SaveTo. The file
// name is kept and the document counts as modified until saved.
func (d *Document) Restore(r io.Reader) error {
	if d.proc.InTransaction() {
		return fmt.Errorf("restore: %w", history.ErrTransactionOpen)
	}
	m, err := decodeMap(r)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	d.replace(m, d.path, false)
	return nil
}

// SaveTo writes the map as indented JSON.
func (d *Document) SaveTo(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d.m.Snapshot())
}

// Save writes the map to path and marks the document unmodified. A failed
// save leaves the document, its history and its modified flag as they were.
// Saving is refused while a transaction is open.
func (d *Document) Save(path string) error {
	if d.proc.InTransaction() {
		return fmt.Errorf("save: %w", history.ErrTransactionOpen)
	}
	if path == "" {
		path = d.path
	}
	if path == "" {
		return fmt.Errorf("save: no file name")
	}
	if err := writeFileAtomic(path, d.SaveTo); err != nil {
		d.log.Error("save failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("save %s: %w", path, err)
	}
	d.path = path
	d.proc.History().MarkSaved()
	d.log.Info("document saved", zap.String("path", path))
	d.ModificationStateChanged.Notify(d.Modified())
	return nil
}

// Export writes a copy of the map to path. The document keeps its file
// name, history and modified flag.
func (d *Document) Export(path string) error {
	if d.proc.InTransaction() {
		return fmt.Errorf("export: %w", history.ErrTransactionOpen)
	}
	if path == "" {
		return fmt.Errorf("export: no file name")
	}
	if d.path != "" && samePath(path, d.path) {
		return fmt.Errorf("export %s: %w", path, ErrExportOverDocument)
	}
	if err := writeFileAtomic(path, d.SaveTo); err != nil {
		d.log.Error("export failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("export %s: %w", path, err)
	}
	d.log.Info("document exported", zap.String("path", path))
	return nil
}

func samePath(a, b string) bool {
	return absPath(a) == absPath(b)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
