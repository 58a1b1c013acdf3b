package mapview

import (
	"sync"
	"time"

	"github.com/eak1mov/go-tilekit/geo"
)

// DataSource owns tiles and tells them the current frame and projection.
type DataSource interface {
	Name() string

	// FrameNumber returns the number of the frame being prepared. It never decreases.
	FrameNumber() int

	Projection() geo.Projection
}

// FrameCounter is a monotonically increasing frame number driven by the render loop.
type FrameCounter struct {
	frame int
}

func (c *FrameCounter) FrameNumber() int {
	return c.frame
}

// Advance starts the next frame and returns its number.
func (c *FrameCounter) Advance() int {
	c.frame++
	return c.frame
}

// Stats receives tile metrics.
type Stats interface {
	RecordDecodeTime(dataSource string, d time.Duration)
}

type DecodeStats struct {
	Count int
	Total time.Duration
	Max   time.Duration
}

func (s DecodeStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// StatsCollector aggregates decode times per data source. It is safe for concurrent use.
type StatsCollector struct {
	mu     sync.Mutex
	decode map[string]DecodeStats
}

func NewStatsCollector() *StatsCollector {
	return &StatsCollector{decode: make(map[string]DecodeStats)}
}

func (c *StatsCollector) RecordDecodeTime(dataSource string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.decode[dataSource]
	s.Count++
	s.Total += d
	s.Max = max(s.Max, d)
	c.decode[dataSource] = s
}

func (c *StatsCollector) DecodeStats(dataSource string) DecodeStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decode[dataSource]
}

type nopStats struct{}

func (nopStats) RecordDecodeTime(string, time.Duration) {}
