package utils

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ProgressFunc receives the completed fraction of an operation, in [0, 1].
type ProgressFunc func(float64)

// MatchingProgress counts finished units of work from many goroutines and
// forwards a never decreasing fraction to its ProgressFunc.
type MatchingProgress struct {
	total  int64
	done   int64
	report ProgressFunc

	mu   sync.Mutex
	last float64
}

func NewMatchingProgress(total int, report ProgressFunc) *MatchingProgress {
	return &MatchingProgress{total: int64(total), report: report}
}

func (p *MatchingProgress) Add(count int) {
	done := atomic.AddInt64(&p.done, int64(count))
	if p.report == nil || p.total == 0 {
		return
	}
	fraction := min(float64(done)/float64(p.total), 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if fraction > p.last {
		p.last = fraction
		p.report(fraction)
	}
}

// Progress returns the completed fraction.
func (p *MatchingProgress) Progress() float64 {
	if p.total == 0 {
		return 0
	}
	return min(float64(atomic.LoadInt64(&p.done))/float64(p.total), 1)
}

// Scale maps [0, 1] onto [offset, offset+width] of report, so several
// phases can share one progress display.
func Scale(report ProgressFunc, offset, width float64) ProgressFunc {
	if report == nil {
		return nil
	}
	return func(f float64) {
		report(offset + width*f)
	}
}

// RunProgressTask runs task with a monotonic progress callback that logs
// every tenth of completion. Success and failure are reported through
// separate continuations; a panic inside task is reported as a failure.
func RunProgressTask(logger *slog.Logger, name string, task func(ProgressFunc) error, onSuccess func(), onFailure func(error)) {
	var (
		mu     sync.Mutex
		last   float64
		logged = -1
	)
	progress := func(f float64) {
		f = max(0, min(f, 1))
		mu.Lock()
		defer mu.Unlock()
		if f < last {
			return
		}
		last = f
		if tenth := int(f * 10); tenth > logged {
			logged = tenth
			logger.Debug("task progress", "task", name, "progress", fmt.Sprintf("%.1f%%", f*100))
		}
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s: panic: %v", name, r)
			}
		}()
		return task(progress)
	}()

	if err != nil {
		if onFailure != nil {
			onFailure(err)
		}
		return
	}
	progress(1)
	if onSuccess != nil {
		onSuccess()
	}
}
