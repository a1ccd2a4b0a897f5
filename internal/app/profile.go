package app

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
)

const profileFlushRows = 240

type profileRow struct {
	Timestamp string  `csv:"timestamp"`
	Section   string  `csv:"section"`
	DeltaMs   float64 `csv:"delta_ms"`
	Live      int     `csv:"live"`
}

// profiler appends per-section frame timings to a CSV file.
// A nil *profiler is valid and does nothing.
type profiler struct {
	mu          sync.Mutex
	file        *os.File
	logger      *log.Logger
	rows        []profileRow
	wroteHeader bool
	start       time.Time
	last        time.Time
}

func newProfiler(path string, logger *log.Logger) *profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		if logger != nil {
			logger.Printf("profiler disabled: %v", err)
		}
		return nil
	}
	return &profiler{
		file:   f,
		logger: logger,
		rows:   make([]profileRow, 0, profileFlushRows),
	}
}

func (p *profiler) beginFrame() {
	if p == nil {
		return
	}
	now := time.Now()
	p.start = now
	p.last = now
}

func (p *profiler) markSection(name string, live int) {
	if p == nil {
		return
	}
	now := time.Now()
	delta := now.Sub(p.last).Seconds() * 1000
	p.last = now
	p.record(name, delta, live)
}

func (p *profiler) endFrame(live int) {
	if p == nil {
		return
	}
	p.record("frame_total", time.Since(p.start).Seconds()*1000, live)
}

func (p *profiler) record(section string, deltaMs float64, live int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows = append(p.rows, profileRow{
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Section:   section,
		DeltaMs:   deltaMs,
		Live:      live,
	})
	if len(p.rows) >= profileFlushRows {
		p.flushLocked()
	}
}

func (p *profiler) flushLocked() {
	if len(p.rows) == 0 || p.file == nil {
		return
	}
	var err error
	if p.wroteHeader {
		err = gocsv.MarshalWithoutHeaders(p.rows, p.file)
	} else {
		err = gocsv.Marshal(p.rows, p.file)
		p.wroteHeader = err == nil
	}
	if err != nil && p.logger != nil {
		p.logger.Printf("profiler write: %v", err)
	}
	p.rows = p.rows[:0]
}

func (p *profiler) Close() error {
	if p == nil || p.file == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushLocked()
	err := p.file.Close()
	p.file = nil
	return err
}
