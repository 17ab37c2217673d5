package history

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/pkg/filesystem"
	"github.com/doeshing/nlsh/internal/ports"
)

const schema = `CREATE TABLE IF NOT EXISTS history (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	timestamp TEXT NOT NULL,
	query TEXT NOT NULL,
	command TEXT NOT NULL,
	is_safe INTEGER NOT NULL,
	safety_level TEXT NOT NULL,
	explanation TEXT,
	executed INTEGER NOT NULL,
	return_code INTEGER
);`

const selectColumns = "SELECT id, timestamp, query, command, is_safe, safety_level, explanation, executed, return_code FROM history"

// SQLiteStore persists the ledger in a SQLite database, selected with
// history.backend: sqlite.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	maxEntries int
	now        func() time.Time
	mu         sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at path, default
// ~/.config/nlsh/history.db.
func NewSQLiteStore(path string, maxEntries int) (*SQLiteStore, error) {
	if path == "" {
		path = filesystem.StatePath(domain.HistoryDBName)
	}
	if maxEntries <= 0 {
		maxEntries = domain.DefaultHistoryMaxEntries
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history db: %w", err)
	}
	return &SQLiteStore{db: db, path: path, maxEntries: maxEntries, now: time.Now}, nil
}

// Add inserts a new entry and trims the table to the configured bound.
func (s *SQLiteStore) Add(entry domain.HistoryEntry) (domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry = stamp(entry, s.now())

	var rc interface{}
	if entry.ReturnCode != nil {
		rc = *entry.ReturnCode
	}
	_, err := s.db.Exec(`INSERT INTO history
		(id, timestamp, query, command, is_safe, safety_level, explanation, executed, return_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.Format(time.RFC3339Nano),
		entry.Query,
		entry.Command,
		boolToInt(entry.IsSafe),
		string(entry.SafetyLevel),
		entry.Explanation,
		boolToInt(entry.Executed),
		rc,
	)
	if err != nil {
		return entry, fmt.Errorf("insert history: %w", err)
	}
	_, err = s.db.Exec(`DELETE FROM history WHERE seq NOT IN
		(SELECT seq FROM history ORDER BY seq DESC LIMIT ?)`, s.maxEntries)
	if err != nil {
		return entry, fmt.Errorf("trim history: %w", err)
	}
	return entry, nil
}

// All returns entries most recent first.
func (s *SQLiteStore) All(limit int) ([]domain.HistoryEntry, error) {
	return s.query(limit)
}

// Search matches query case-insensitively against each entry's query text.
// SQLite's lower() and LIKE only fold ASCII, so rows are filtered in Go.
func (s *SQLiteStore) Search(query string, limit int) ([]domain.HistoryEntry, error) {
	all, err := s.query(0)
	if err != nil {
		return nil, err
	}
	matches := queryMatcher(query)
	out := make([]domain.HistoryEntry, 0, len(all))
	for _, entry := range all {
		if limit > 0 && len(out) == limit {
			break
		}
		if matches(entry) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// GetByID returns the id-th most recent entry (1-based).
func (s *SQLiteStore) GetByID(id int) (domain.HistoryEntry, error) {
	if id < 1 {
		return domain.HistoryEntry{}, domain.ErrHistoryEntryNotFound
	}
	row := s.db.QueryRow(selectColumns+" ORDER BY seq DESC LIMIT 1 OFFSET ?", id-1)
	entry, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HistoryEntry{}, domain.ErrHistoryEntryNotFound
	}
	return entry, err
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM history")
	return err
}

// Export writes all entries, most recent first.
func (s *SQLiteStore) Export(w io.Writer, format domain.ExportFormat) error {
	entries, err := s.All(0)
	if err != nil {
		return err
	}
	return Export(w, format, entries)
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(limit int) ([]domain.HistoryEntry, error) {
	stmt := selectColumns + " ORDER BY seq DESC"
	var args []interface{}
	if limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		entry, err := scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(row scanner) (domain.HistoryEntry, error) {
	var (
		entry            domain.HistoryEntry
		ts, level        string
		explanation      sql.NullString
		isSafe, executed int
		returnCode       sql.NullInt64
	)
	if err := row.Scan(&entry.ID, &ts, &entry.Query, &entry.Command, &isSafe, &level, &explanation, &executed, &returnCode); err != nil {
		return domain.HistoryEntry{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		entry.Timestamp = t
	}
	entry.IsSafe = isSafe == 1
	entry.SafetyLevel = domain.SafetyLevel(level)
	entry.Explanation = explanation.String
	entry.Executed = executed == 1
	if returnCode.Valid {
		rc := int(returnCode.Int64)
		entry.ReturnCode = &rc
	}
	return entry, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
