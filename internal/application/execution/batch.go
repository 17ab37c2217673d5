package execution

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// BatchSummary counts per-line outcomes of RunBatch.
type BatchSummary struct {
	Processed int
	Succeeded int
	Failed    int
}

// RunBatch runs every query in path, one per line. Blank lines and lines
// starting with # are skipped, and a failing line never stops the batch.
// Only an unreadable file makes the batch itself fail.
func (g *Gate) RunBatch(ctx context.Context, path string, base Request) (BatchSummary, Result) {
	var summary BatchSummary
	file, err := os.Open(path)
	if err != nil {
		return summary, failure(1, fmt.Sprintf("Error reading batch file: %v", err))
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, failure(1, err.Error())
		}

		summary.Processed++
		g.Output.Info(fmt.Sprintf("[%d] %s", lineNo, line))
		req := base
		req.Query = line
		req.Refine = false
		req.Edit = false
		req.Alternatives = false

		result := g.Run(ctx, req)
		if result.ExitCode != 0 {
			summary.Failed++
			g.Logger.Warn("batch line failed", map[string]interface{}{"line": lineNo, "error": result.Message})
			if result.Message != "" {
				g.Output.Error(result.Message)
			}
			continue
		}
		summary.Succeeded++
	}
	if err := scanner.Err(); err != nil {
		return summary, failure(1, fmt.Sprintf("Error reading batch file: %v", err))
	}

	g.Output.Info(fmt.Sprintf("Processed %d queries: %d succeeded, %d failed", summary.Processed, summary.Succeeded, summary.Failed))
	return summary, success("")
}
