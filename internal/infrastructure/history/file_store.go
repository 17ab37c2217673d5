package history

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/pkg/filesystem"
	"github.com/doeshing/nlsh/internal/ports"
)

// FileStore keeps the ledger as one JSON array, oldest first on disk.
type FileStore struct {
	path       string
	maxEntries int
	logger     ports.Logger
	now        func() time.Time

	mu      sync.Mutex
	loaded  bool
	entries []domain.HistoryEntry
}

// NewFileStore creates a store at path (default ~/.config/nlsh/history.json)
// holding at most maxEntries entries.
func NewFileStore(path string, maxEntries int, logger ports.Logger) *FileStore {
	if path == "" {
		path = filesystem.StatePath(domain.HistoryFileName)
	}
	if maxEntries <= 0 {
		maxEntries = domain.DefaultHistoryMaxEntries
	}
	return &FileStore{path: path, maxEntries: maxEntries, logger: logger, now: time.Now}
}

// Add stamps the entry with an ID and timestamp and appends it.
func (f *FileStore) Add(entry domain.HistoryEntry) (domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoaded()

	entry = stamp(entry, f.now())
	f.entries = append(f.entries, entry)
	if over := len(f.entries) - f.maxEntries; over > 0 {
		f.entries = append([]domain.HistoryEntry(nil), f.entries[over:]...)
	}
	if err := filesystem.WriteJSON(f.path, f.entries); err != nil {
		return entry, err
	}
	return entry, nil
}

// All returns entries most recent first; limit <= 0 means all.
func (f *FileStore) All(limit int) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoaded()
	return newestFirst(f.entries, limit, nil), nil
}

// Search matches query case-insensitively against each entry's query text.
func (f *FileStore) Search(query string, limit int) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoaded()
	return newestFirst(f.entries, limit, queryMatcher(query)), nil
}

// GetByID returns the id-th most recent entry (1-based).
func (f *FileStore) GetByID(id int) (domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoaded()
	if id < 1 || id > len(f.entries) {
		return domain.HistoryEntry{}, domain.ErrHistoryEntryNotFound
	}
	return f.entries[len(f.entries)-id], nil
}

// Clear removes every entry.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	f.loaded = true
	return filesystem.WriteJSON(f.path, []domain.HistoryEntry{})
}

// Export writes all entries, most recent first.
func (f *FileStore) Export(w io.Writer, format domain.ExportFormat) error {
	entries, err := f.All(0)
	if err != nil {
		return err
	}
	return Export(w, format, entries)
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) ensureLoaded() {
	if f.loaded {
		return
	}
	f.loaded = true
	var entries []domain.HistoryEntry
	if _, err := filesystem.ReadJSON(f.path, &entries); err != nil {
		if f.logger != nil {
			f.logger.Warn("history document unreadable, starting empty", map[string]interface{}{"path": f.path, "error": err.Error()})
		}
		entries = nil
	}
	f.entries = entries
}

// queryMatcher matches entries whose query contains needle, folding case
// with Unicode rules. Both backends search through it.
func queryMatcher(needle string) func(domain.HistoryEntry) bool {
	needle = strings.ToLower(needle)
	return func(e domain.HistoryEntry) bool {
		return strings.Contains(strings.ToLower(e.Query), needle)
	}
}

func newestFirst(entries []domain.HistoryEntry, limit int, keep func(domain.HistoryEntry) bool) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if keep != nil && !keep(entries[i]) {
			continue
		}
		out = append(out, entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func stamp(entry domain.HistoryEntry, now time.Time) domain.HistoryEntry {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}
	if entry.ID == "" {
		entropy := ulid.Monotonic(rand.Reader, 0)
		entry.ID = ulid.MustNew(ulid.Timestamp(entry.Timestamp), entropy).String()
	}
	return entry
}

var _ ports.HistoryRepository = (*FileStore)(nil)
