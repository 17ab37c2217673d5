package history

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

type backend struct {
	name string
	open func(t *testing.T, max int) ports.HistoryRepository
}

var backends = []backend{
	{
		name: "json",
		open: func(t *testing.T, max int) ports.HistoryRepository {
			return NewFileStore(filepath.Join(t.TempDir(), "history.json"), max, nil)
		},
	},
	{
		name: "sqlite",
		open: func(t *testing.T, max int) ports.HistoryRepository {
			store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), max)
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
	},
}

func entry(query, command string) domain.HistoryEntry {
	return domain.NewHistoryEntry(query, domain.CommandResponse{
		Command:     command,
		IsSafe:      true,
		SafetyLevel: domain.SafetyLevelSafe,
	})
}

func TestOrderingAndLimit(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, 100)
			for _, q := range []string{"e1", "e2", "e3"} {
				_, err := store.Add(entry(q, "echo "+q))
				require.NoError(t, err)
			}

			all, err := store.All(0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "e3", all[0].Query)
			assert.Equal(t, "e1", all[2].Query)

			two, err := store.All(2)
			require.NoError(t, err)
			require.Len(t, two, 2)
			assert.Equal(t, "e3", two[0].Query)
			assert.Equal(t, "e2", two[1].Query)
		})
	}
}

func TestSearchIsCaseInsensitiveOverQuery(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, 100)
			_, err := store.Add(entry("list python files", `find . -name "*.py"`))
			require.NoError(t, err)
			_, err = store.Add(entry("show disk usage", "df -h"))
			require.NoError(t, err)

			got, err := store.Search("PYTHON", 0)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "list python files", got[0].Query)

			got, err = store.Search("df", 0)
			require.NoError(t, err)
			assert.Empty(t, got, "search must not match command text")
		})
	}
}

func TestSearchFoldsNonASCIICase(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, 100)
			_, err := store.Add(entry("Ζήτα: list ÉTÉ photos", "ls photos/ete"))
			require.NoError(t, err)
			_, err = store.Add(entry("show 100% disk_usage", "df -h"))
			require.NoError(t, err)

			got, err := store.Search("ζήτα", 0)
			require.NoError(t, err)
			require.Len(t, got, 1)

			got, err = store.Search("été", 0)
			require.NoError(t, err)
			require.Len(t, got, 1)

			got, err = store.Search("100%", 0)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "show 100% disk_usage", got[0].Query)

			got, err = store.Search("s", 1)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "show 100% disk_usage", got[0].Query)
		})
	}
}

func TestBoundedLedger(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, 2)
			for _, q := range []string{"a", "b", "c"} {
				_, err := store.Add(entry(q, "true"))
				require.NoError(t, err)
			}
			all, err := store.All(0)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "c", all[0].Query)
			assert.Equal(t, "b", all[1].Query)
		})
	}
}

func TestGetByIDAndExecution(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, 100)
			_, err := store.Add(entry("first", "ls"))
			require.NoError(t, err)
			added, err := store.Add(entry("second", "rm -rf build").WithExecution(2))
			require.NoError(t, err)
			assert.NotEmpty(t, added.ID)
			assert.False(t, added.Timestamp.IsZero())

			got, err := store.GetByID(1)
			require.NoError(t, err)
			assert.Equal(t, "second", got.Query)
			assert.True(t, got.Executed)
			require.NotNil(t, got.ReturnCode)
			assert.Equal(t, 2, *got.ReturnCode)

			got, err = store.GetByID(2)
			require.NoError(t, err)
			assert.Equal(t, "first", got.Query)
			assert.Nil(t, got.ReturnCode)

			_, err = store.GetByID(3)
			assert.ErrorIs(t, err, domain.ErrHistoryEntryNotFound)
			_, err = store.GetByID(0)
			assert.ErrorIs(t, err, domain.ErrHistoryEntryNotFound)
		})
	}
}

func TestClear(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, 100)
			_, err := store.Add(entry("q", "ls"))
			require.NoError(t, err)
			require.NoError(t, store.Clear())
			all, err := store.All(0)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestExport(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, 100)
			_, err := store.Add(entry("one", "ls"))
			require.NoError(t, err)
			_, err = store.Add(entry("two", "pwd").WithExecution(0))
			require.NoError(t, err)

			var js bytes.Buffer
			require.NoError(t, store.Export(&js, domain.ExportJSON))
			var decoded []domain.HistoryEntry
			require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
			require.Len(t, decoded, 2)
			assert.Equal(t, "two", decoded[0].Query)

			var cs bytes.Buffer
			require.NoError(t, store.Export(&cs, domain.ExportCSV))
			rows, err := csv.NewReader(&cs).ReadAll()
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.Equal(t, csvHeader, rows[0])
			assert.Equal(t, "two", rows[1][2])
			assert.Equal(t, "0", rows[1][7])
			assert.Equal(t, "", rows[2][7])

			assert.Error(t, store.Export(&cs, domain.ExportFormat("xml")))
		})
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	store := NewFileStore(path, 10, nil)
	all, err := store.All(0)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = store.Add(entry("fresh", "ls"))
	require.NoError(t, err)
	reopened := NewFileStore(path, 10, nil)
	all, err = reopened.All(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
