package helpers

import (
	"sort"

	"github.com/doeshing/nlsh/internal/domain"
)

// CommandStatistic represents usage statistics for a command
type CommandStatistic struct {
	Command string
	Count   int
}

// HistorySummary aggregates a set of history entries.
type HistorySummary struct {
	Total       int
	Executed    int
	Succeeded   int
	Modifying   int
	TopCommands []CommandStatistic
}

// SuccessRate is the share of executed entries that returned 0, as a percentage.
func (s HistorySummary) SuccessRate() float64 {
	return CalculateSuccessRate(s.Succeeded, s.Executed)
}

// SummarizeHistory counts outcomes and the most frequent commands.
func SummarizeHistory(entries []domain.HistoryEntry, top int) HistorySummary {
	summary := HistorySummary{Total: len(entries)}
	frequency := make(map[string]int)
	for _, entry := range entries {
		frequency[entry.Command]++
		if entry.SafetyLevel != domain.SafetyLevelSafe {
			summary.Modifying++
		}
		if !entry.Executed {
			continue
		}
		summary.Executed++
		if entry.ReturnCode != nil && *entry.ReturnCode == 0 {
			summary.Succeeded++
		}
	}
	summary.TopCommands = CalculateTopCommands(frequency, top)
	return summary
}

// CalculateTopCommands returns the top N most frequently used commands
// If limit is 0 or negative, returns all commands
func CalculateTopCommands(commandFrequency map[string]int, limit int) []CommandStatistic {
	stats := make([]CommandStatistic, 0, len(commandFrequency))
	for cmd, count := range commandFrequency {
		stats = append(stats, CommandStatistic{Command: cmd, Count: count})
	}
	// Count descending, then command name ascending.
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Command < stats[j].Command
		}
		return stats[i].Count > stats[j].Count
	})
	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

// CalculateSuccessRate calculates the success rate as a percentage
func CalculateSuccessRate(successfulCount int, executedCount int) float64 {
	if executedCount == 0 {
		return 0.0
	}
	return float64(successfulCount) / float64(executedCount) * 100.0
}
