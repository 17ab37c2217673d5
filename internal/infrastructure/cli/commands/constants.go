package commands

import "time"

// Display formats
const (
	// TimestampFormat is used for absolute times in listings
	TimestampFormat = "2006-01-02 15:04:05"
	// MaxCommandDisplayLength truncates commands in one-line listings
	MaxCommandDisplayLength = 60
)

// History constants
const (
	DefaultHistorySearchLimit = 20
	// MaxHistoryAnalysisRecords bounds 'history stats'
	MaxHistoryAnalysisRecords = 1000
	TopCommandsShown          = 5
)

// RecentThreshold is how old an entry may be before listings switch from
// relative to absolute timestamps.
const RecentThreshold = 7 * 24 * time.Hour

// Error messages
const (
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrHistoryStoreUnavailable  = "history store unavailable"
	ErrCacheStoreUnavailable    = "cache store unavailable"
	ErrTemplateStoreUnavailable = "template store unavailable"
	ErrResolverUnavailable      = "provider resolver unavailable"
	ErrGateUnavailable          = "execution gate unavailable"
)

// Success messages
const (
	MsgNoHistoryRecorded = "No history recorded yet."
	MsgNoTemplates       = "No templates saved."
	MsgNoMatches         = "No matches."
	MsgCancelled         = "Cancelled."
)
