package domain

import "time"

// InterruptedReturnCode is recorded when the user interrupts execution.
const InterruptedReturnCode = 130

// HistoryEntry records one completed run. Entries are never mutated.
type HistoryEntry struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Query       string      `json:"query"`
	Command     string      `json:"command"`
	IsSafe      bool        `json:"is_safe"`
	SafetyLevel SafetyLevel `json:"safety_level"`
	Explanation string      `json:"explanation,omitempty"`
	Executed    bool        `json:"executed"`
	ReturnCode  *int        `json:"return_code,omitempty"`
}

// NewHistoryEntry builds an unexecuted entry from a response.
func NewHistoryEntry(query string, resp CommandResponse) HistoryEntry {
	return HistoryEntry{
		Query:       query,
		Command:     resp.Command,
		IsSafe:      resp.IsSafe,
		SafetyLevel: resp.SafetyLevel,
		Explanation: resp.Explanation,
	}
}

// WithExecution marks the entry as executed with the given return code.
func (e HistoryEntry) WithExecution(returnCode int) HistoryEntry {
	rc := returnCode
	e.Executed = true
	e.ReturnCode = &rc
	return e
}

// Response converts the entry back into a CommandResponse.
func (e HistoryEntry) Response() CommandResponse {
	return CommandResponse{
		Command:     e.Command,
		IsSafe:      e.IsSafe,
		SafetyLevel: e.SafetyLevel,
		Explanation: e.Explanation,
	}
}

// ExportFormat selects the history export encoding.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)
