package reindex

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultReportInterval is how often the Tracker reports, in chunks.
const DefaultReportInterval = 100

// Progress receives updates as a reindex run advances. Implementations must
// tolerate Update and Finish being called without a preceding Start.
type Progress interface {
	// Start announces the total number of chunks about to be processed.
	Start(total int)

	// Update reports the number of chunks processed so far.
	Update(completed int)

	// Finish marks the run as complete.
	Finish()
}

// NopProgress discards all progress updates.
type NopProgress struct{}

func (NopProgress) Start(total int)      {}
func (NopProgress) Update(completed int) {}
func (NopProgress) Finish()              {}

// Tracker reports progress as text to a writer, typically os.Stderr.
type Tracker struct {
	writer         io.Writer
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewTracker creates a progress tracker.
// writer: where to write progress output (typically os.Stderr)
// reportInterval: report progress every N chunks; values less than 1 fall
// back to DefaultReportInterval
func NewTracker(writer io.Writer, reportInterval int) *Tracker {
	if reportInterval < 1 {
		reportInterval = DefaultReportInterval
	}

	return &Tracker{
		writer:         writer,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress toward the given total.
func (p *Tracker) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
}

// Update sets the current progress to the specified value.
func (p *Tracker) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	// Cap at total
	if current > p.total {
		current = p.total
	}

	p.current = current

	// Report if we've crossed a report interval
	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Increment increases the current progress by the specified amount.
func (p *Tracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current += delta
	if p.current > p.total {
		p.current = p.total
	}

	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish marks the operation as complete and prints final progress.
func (p *Tracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer) // Print newline after final progress
}

// Elapsed returns the time elapsed since Start was called.
func (p *Tracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *Tracker) report() {
	elapsed := time.Since(p.startTime)
	rate := float64(p.current) / elapsed.Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - %.1f chunks/s",
		p.current, p.total, percentage, rate)
}
