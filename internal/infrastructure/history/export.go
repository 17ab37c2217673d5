package history

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/doeshing/nlsh/internal/domain"
)

var csvHeader = []string{"id", "timestamp", "query", "command", "is_safe", "safety_level", "executed", "return_code"}

// Export encodes entries as an indented JSON array or as CSV with a header row.
func Export(w io.Writer, format domain.ExportFormat, entries []domain.HistoryEntry) error {
	switch format {
	case domain.ExportJSON:
		if entries == nil {
			entries = []domain.HistoryEntry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case domain.ExportCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		for _, e := range entries {
			rc := ""
			if e.ReturnCode != nil {
				rc = strconv.Itoa(*e.ReturnCode)
			}
			row := []string{
				e.ID,
				e.Timestamp.Format(time.RFC3339),
				e.Query,
				e.Command,
				strconv.FormatBool(e.IsSafe),
				string(e.SafetyLevel),
				strconv.FormatBool(e.Executed),
				rc,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unsupported export format %q (use json or csv)", format)
	}
}
