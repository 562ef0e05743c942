package autosave

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var ErrNoBackup = errors.New("no backup")

const schema = `
CREATE TABLE IF NOT EXISTS backups (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    document     TEXT    NOT NULL,
    created_at   INTEGER NOT NULL,
    modification INTEGER NOT NULL,
    data         BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS backups_document ON backups (document, id);
`

// Backup is one saved copy of a document.
type Backup struct {
	ID           int64
	Document     string
	CreatedAt    time.Time
	Modification uint64
	Data         []byte
}

// Store keeps document backups in a SQLite database, at most maxBackups per
// document.
type Store struct {
	db         *sql.DB
	maxBackups int
}

// OpenSQLite opens or creates the backup database at dbPath.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewStore creates the schema if needed.
func NewStore(ctx context.Context, db *sql.DB, maxBackups int) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if maxBackups <= 0 {
		maxBackups = 1
	}
	return &Store{db: db, maxBackups: maxBackups}, nil
}

// OpenStore opens the database at path and prepares it for backups.
func OpenStore(ctx context.Context, path string, maxBackups int) (*Store, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(ctx, db, maxBackups)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores b and drops the oldest backups of the same document beyond the
// retention limit.
func (s *Store) Put(ctx context.Context, b Backup) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        INSERT INTO backups (document, created_at, modification, data)
        VALUES (?, ?, ?, ?)
    `, b.Document, b.CreatedAt.UnixNano(), int64(b.Modification), b.Data)
	if err != nil {
		return 0, fmt.Errorf("insert backup: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
        DELETE FROM backups
        WHERE document = ? AND id NOT IN (
            SELECT id FROM backups WHERE document = ? ORDER BY id DESC LIMIT ?
        )
    `, b.Document, b.Document, s.maxBackups)
	if err != nil {
		return 0, fmt.Errorf("prune backups: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Latest returns the newest backup of a document.
func (s *Store) Latest(ctx context.Context, document string) (Backup, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, document, created_at, modification, data
        FROM backups
        WHERE document = ?
        ORDER BY id DESC
        LIMIT 1
    `, document)

	var (
		b       Backup
		created int64
		mod     int64
	)
	if err := row.Scan(&b.ID, &b.Document, &created, &mod, &b.Data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Backup{}, fmt.Errorf("%s: %w", document, ErrNoBackup)
		}
		return Backup{}, err
	}
	b.CreatedAt = time.Unix(0, created)
	b.Modification = uint64(mod)
	return b, nil
}

// List returns the backups of a document, newest first, without their data.
func (s *Store) List(ctx context.Context, document string) ([]Backup, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, document, created_at, modification
        FROM backups
        WHERE document = ?
        ORDER BY id DESC
    `, document)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Backup
	for rows.Next() {
		var (
			b       Backup
			created int64
			mod     int64
		)
		if err := rows.Scan(&b.ID, &b.Document, &created, &mod); err != nil {
			return nil, err
		}
		b.CreatedAt = time.Unix(0, created)
		b.Modification = uint64(mod)
		out = append(out, b)
	}
	return out, rows.Err()
}
