// Package benchmark times repeated scans of one photo and reports how long
// they took and how much memory they allocated.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/scan"
)

// Timer measures one named interval.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64  // Currently allocated bytes
	TotalAllocBytes uint64  // Total allocated bytes (cumulative)
	SysBytes        uint64  // Total bytes from system
	NumGC           uint32  // Number of GC runs
	GCCPUFraction   float64 // Fraction of CPU time spent in GC
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
		GCCPUFraction:   m.GCCPUFraction,
	}
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %d KB, Total: %d KB, Sys: %d KB, GC: %d (%.2f%% CPU)",
		m.AllocBytes/1024,
		m.TotalAllocBytes/1024,
		m.SysBytes/1024,
		m.NumGC,
		m.GCCPUFraction*100)
}

// Result is the outcome of one benchmark.
type Result struct {
	Name         string
	Duration     time.Duration
	Min          time.Duration
	Max          time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int
	// Found counts the iterations that detected something.
	Found int
	Error error
}

// Average returns the mean duration per iteration.
func (r Result) Average() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// AllocatedBytes is the cumulative allocation during the run.
func (r Result) AllocatedBytes() uint64 {
	return r.MemoryAfter.TotalAllocBytes - r.MemoryBefore.TotalAllocBytes
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, min: %v, max: %v, total: %v, alloc: %d KB, found: %d",
		r.Name, r.Iterations, r.Average(), r.Min, r.Max, r.Duration, r.AllocatedBytes()/1024, r.Found)
}

// Func is one benchmarked operation. It reports whether it detected anything.
type Func func(ctx context.Context) (found bool, err error)

type benchmark struct {
	name string
	fn   Func
}

// Suite runs named benchmarks and keeps their results.
type Suite struct {
	benchmarks []benchmark
	results    []Result
	mu         sync.Mutex
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers a benchmark.
func (s *Suite) Add(name string, fn Func) {
	s.benchmarks = append(s.benchmarks, benchmark{name: name, fn: fn})
}

// Run runs the named benchmark iterations times. The first error stops it.
func (s *Suite) Run(ctx context.Context, name string, iterations int) Result {
	var b *benchmark
	for i := range s.benchmarks {
		if s.benchmarks[i].name == name {
			b = &s.benchmarks[i]
			break
		}
	}
	if b == nil {
		return Result{Name: name, Error: fmt.Errorf("benchmark %s not found", name)}
	}
	if iterations <= 0 {
		return Result{Name: name, Error: errors.New("iterations must be positive")}
	}

	runtime.GC()
	res := Result{Name: name, MemoryBefore: GetMemoryStats()}

	for i := 0; i < iterations; i++ {
		timer := NewTimer(name)
		found, err := b.fn(ctx)
		d := timer.Stop()
		if err != nil {
			res.Error = fmt.Errorf("iteration %d: %w", i+1, err)
			break
		}
		res.Iterations++
		res.Duration += d
		if res.Min == 0 || d < res.Min {
			res.Min = d
		}
		res.Max = max(res.Max, d)
		if found {
			res.Found++
		}
	}
	res.MemoryAfter = GetMemoryStats()

	s.mu.Lock()
	s.results = append(s.results, res)
	s.mu.Unlock()
	return res
}

// RunAll runs every registered benchmark in order.
func (s *Suite) RunAll(ctx context.Context, iterations int) []Result {
	out := make([]Result, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		if ctx.Err() != nil {
			break
		}
		out = append(out, s.Run(ctx, b.name, iterations))
	}
	return out
}

// Results returns a copy of all results so far.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// ScanFunc benchmarks session scans of the photo at path. The session must
// keep its files (DeleteAfterScan off), otherwise the second iteration fails.
func ScanFunc(session *scan.Session, path string) Func {
	return func(ctx context.Context) (bool, error) {
		res, err := session.Scan(ctx, path)
		if err != nil {
			return false, err
		}
		return res.Found, nil
	}
}
