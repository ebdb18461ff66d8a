package app

import (
	"errors"
	"fmt"
	"time"
)

// PartitionTarget selects which partition of a multi-partition disk a
// command should operate on. A disk carved up by MBR, APM, or GPT can
// embed several HFS+/HFSX volumes; most commands default to the first
// one found but accept an explicit index or name instead.
type PartitionTarget struct {
	Index int
	Name  string
}

// Validate ensures the partition target is not over-specified.
func (pt *PartitionTarget) Validate() error {
	if pt.Index != 0 && pt.Name != "" {
		return errors.New("cannot specify both partition index and partition name")
	}
	return nil
}

// IsEmpty returns true if no partition target is specified.
func (pt *PartitionTarget) IsEmpty() bool {
	return pt.Index == 0 && pt.Name == ""
}

// String returns a string representation of the partition target.
func (pt *PartitionTarget) String() string {
	if pt.Name != "" {
		return "Partition: " + pt.Name
	}
	if pt.Index != 0 {
		return fmt.Sprintf("Partition index: %d", pt.Index)
	}
	return "First HFS+/HFSX partition"
}

// ProgressUpdate represents progress information
type ProgressUpdate struct {
	Message     string
	Completed   int64
	Total       int64
	StartedAt   time.Time
	ElapsedTime time.Duration
}

// Percent calculates completion percentage
func (p *ProgressUpdate) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int((p.Completed * 100) / p.Total)
}

// Rate calculates items per second
func (p *ProgressUpdate) Rate() float64 {
	if p.ElapsedTime == 0 {
		return 0
	}
	return float64(p.Completed) / p.ElapsedTime.Seconds()
}

// ETA estimates time to completion
func (p *ProgressUpdate) ETA() time.Duration {
	if p.Completed == 0 || p.Total == 0 {
		return 0
	}
	rate := p.Rate()
	if rate == 0 {
		return 0
	}
	remaining := p.Total - p.Completed
	return time.Duration(float64(remaining)/rate) * time.Second
}

