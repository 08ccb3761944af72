// Package ingestion holds the state of corpus ingestion runs.
package ingestion

import (
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/docassist/internal/domain"
)

// Status is the state of the current or last ingestion run.
type Status string

// Run status values.
const (
	NotStarted Status = "NotStarted"
	Processing Status = "Processing"
	Succeeded  Status = "Succeeded"
	Failed     Status = "Failed"
)

// TerminalPolicy decides the status of a run that completed with chunk failures.
type TerminalPolicy string

const (
	// PolicyOverwrite ends every completed run as Succeeded, even after recorded
	// chunk failures. The last error message is kept.
	PolicyOverwrite TerminalPolicy = "overwrite"
	// PolicySticky keeps Failed once any chunk failed.
	PolicySticky TerminalPolicy = "sticky"
)

// ParseTerminalPolicy maps a config value to a policy; empty selects overwrite.
func ParseTerminalPolicy(s string) (TerminalPolicy, error) {
	switch p := TerminalPolicy(s); p {
	case "", PolicyOverwrite:
		return PolicyOverwrite, nil
	case PolicySticky:
		return PolicySticky, nil
	default:
		return "", fmt.Errorf("unknown terminal status policy %q", s)
	}
}

// Snapshot is a consistent copy of run progress.
type Snapshot struct {
	RunID           string
	Status          Status
	PagesProcessed  int
	ChunksProcessed int
	ChunkFailures   int
	TotalPages      int
	LastError       string
	StartedAt       time.Time
	FinishedAt      time.Time
}

// PageBuffer is the processed page count plus two, the denominator slack a
// progress bar uses so it never shows full before the run ends.
func (s Snapshot) PageBuffer() int { return s.PagesProcessed + 2 }

// Percent returns processed pages over total pages, 0 when the total is unknown.
func (s Snapshot) Percent() float64 {
	if s.TotalPages <= 0 {
		return 0
	}
	return min(100, float64(s.PagesProcessed)/float64(s.TotalPages)*100)
}

// Progress is the synchronized, process-wide progress of ingestion. It is
// owned by the orchestrator and shared by reference with status readers.
type Progress struct {
	mu      sync.Mutex
	snap    Snapshot
	running bool
}

// NewProgress returns progress in the NotStarted state.
func NewProgress() *Progress {
	return &Progress{snap: Snapshot{Status: NotStarted}}
}

// Begin resets counters and enters Processing. It fails if a run is active,
// including one whose status already shows a chunk failure.
func (p *Progress) Begin(runID string, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("run %s: %w", p.snap.RunID, domain.ErrIngestionRunning)
	}
	p.running = true
	p.snap = Snapshot{RunID: runID, Status: Processing, StartedAt: now}
	return nil
}

// Running reports whether a run is active.
func (p *Progress) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// SetTotalPages stores the pre-scanned page count.
func (p *Progress) SetTotalPages(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.TotalPages = n
}

// PageDone counts one processed page and its chunk, successful or not.
func (p *Progress) PageDone() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.PagesProcessed++
	p.snap.ChunksProcessed++
}

// RecordChunkFailure stores err as the last error and marks the run Failed.
// The run keeps going.
func (p *Progress) RecordChunkFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.ChunkFailures++
	p.snap.LastError = err.Error()
	p.snap.Status = Failed
}

// Abort ends the run as Failed with err.
func (p *Progress) Abort(err error, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.snap.Status = Failed
	p.snap.LastError = err.Error()
	p.snap.FinishedAt = now
}

// Finish sets the terminal status of a completed run according to policy.
func (p *Progress) Finish(policy TerminalPolicy, now time.Time) Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.running = false
	p.snap.Status = Succeeded
	if policy == PolicySticky && p.snap.ChunkFailures > 0 {
		p.snap.Status = Failed
	}
	p.snap.FinishedAt = now
	return p.snap.Status
}

// Snapshot returns a copy of the current state.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}
