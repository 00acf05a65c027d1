// Package sysmetrics samples live system metrics (CPU, RAM, GPU, temperature,
// disk and network throughput) and keeps short histories for sparklines.
// Throughput is derived from cumulative OS counters, so the Sampler remembers
// the previous reading between calls.
package sysmetrics

import (
	"fmt"
	"time"
)

// NA is shown for a metric that could not be read.
const NA = "N/A"

// Snapshot is one sample of every metric. Fields that could not be read hold
// their zero value (numbers) or NA (text).
type Snapshot struct {
	CPUPercent float64   `json:"cpu_percent"`
	RAMPercent float64   `json:"ram_percent"`
	RAMUsedGB  float64   `json:"ram_used_gb"`
	GPUText    string    `json:"gpu"`
	TempText   string    `json:"temp"`
	DiskMBps   float64   `json:"disk_mbps"`
	NetMbps    float64   `json:"net_mbps"`
	Timestamp  time.Time `json:"timestamp"`
}

// Keys lists the Formatted map keys in dashboard order.
var Keys = []string{"CPU", "RAM", "GPU", "Temp", "Disk", "Net"}

// Formatted renders the snapshot as display strings keyed by Keys.
func (s Snapshot) Formatted() map[string]string {
	return map[string]string{
		"CPU":  fmt.Sprintf("%.0f%%", s.CPUPercent),
		"RAM":  fmt.Sprintf("%.1f GB", s.RAMUsedGB),
		"GPU":  s.GPUText,
		"Temp": s.TempText,
		"Disk": fmt.Sprintf("%.1f MB/s", s.DiskMBps),
		"Net":  fmt.Sprintf("%.2f Mb/s", s.NetMbps),
	}
}

// SysMetricsData is the collector payload: the latest snapshot plus history
// ring buffers used for sparklines.
type SysMetricsData struct {
	Snapshot

	// CPUHistory is a ring buffer of CPU usage samples, max MaxHistorySamples.
	CPUHistory []float64 `json:"cpu_history"`

	// RAMHistory is a ring buffer of RAM usage samples, max MaxHistorySamples.
	RAMHistory []float64 `json:"ram_history"`

	// DiskHistory holds disk throughput samples in MB/s.
	DiskHistory []float64 `json:"disk_history"`

	// NetHistory holds network throughput samples in Mb/s.
	NetHistory []float64 `json:"net_history"`
}

// MaxHistorySamples is the maximum number of historical samples retained
// in each ring buffer. At the default 2s interval this covers two minutes.
const MaxHistorySamples = 60

// appendAndTrim appends a value to a history slice and trims it to limit,
// discarding the oldest entries.
func appendAndTrim(history []float64, value float64, limit int) []float64 {
	if limit <= 0 {
		limit = MaxHistorySamples
	}
	history = append(history, value)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

func cloneHistory(history []float64) []float64 {
	out := make([]float64, len(history))
	copy(out, history)
	return out
}
