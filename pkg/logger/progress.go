package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker counts finished units of a batch (one unit per instrument)
// and logs each completion with the running totals.
type ProgressTracker struct {
	logger    Logger
	operation string
	total     int
	done      int
	failed    int
	startTime time.Time
	mutex     sync.Mutex
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(operation string, total int, log Logger) *ProgressTracker {
	if log == nil {
		log = GetGlobalLogger()
	}

	p := &ProgressTracker{
		logger:    log.WithComponent("progress"),
		operation: operation,
		total:     total,
		startTime: time.Now(),
	}

	p.logger.WithFields(Fields{
		"operation": operation,
		"total":     total,
	}).Debug("Starting operation")

	return p
}

// Done records one finished unit. err marks the unit as failed.
func (p *ProgressTracker) Done(unit string, err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.done++
	fields := Fields{
		"operation": p.operation,
		"unit":      unit,
		"progress":  fmt.Sprintf("%d/%d", p.done, p.total),
	}
	if err != nil {
		p.failed++
		p.logger.WithError(err).WithFields(fields).Warn("Unit failed")
		return
	}
	p.logger.WithFields(fields).Info("Unit completed")
}

// Complete logs the final statistics and returns them
func (p *ProgressTracker) Complete() ProgressStats {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	stats := ProgressStats{
		Operation: p.operation,
		Total:     p.total,
		Done:      p.done,
		Failed:    p.failed,
		Duration:  time.Since(p.startTime),
	}

	p.logger.WithFields(Fields{
		"operation": p.operation,
		"total":     p.total,
		"failed":    p.failed,
		"duration":  stats.Duration.String(),
	}).Info("Operation completed")

	return stats
}

// ProgressStats contains progress statistics
type ProgressStats struct {
	Operation string        `json:"operation"`
	Total     int           `json:"total"`
	Done      int           `json:"done"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// String returns a human-readable representation of the progress
func (ps ProgressStats) String() string {
	return fmt.Sprintf("%s: %d/%d done, %d failed, elapsed %v",
		ps.Operation, ps.Done, ps.Total, ps.Failed, ps.Duration)
}
