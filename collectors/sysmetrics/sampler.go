package sysmetrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/cloud-optimizer/cache"
	"gitlab.com/tinyland/lab/cloud-optimizer/collectors"
	"gitlab.com/tinyland/lab/cloud-optimizer/internal/sysexec"
)

const (
	// collectorName is the unique identifier for this collector.
	collectorName = "sysmetrics"

	// collectorDescription describes what this collector gathers.
	collectorDescription = "Live system metrics (CPU, RAM, GPU, Temp, Disk, Net)"

	// cacheKey is the cache store key holding the history ring buffers.
	cacheKey = "sysmetrics"

	// historyTTL discards persisted history older than this on load.
	historyTTL = 10 * time.Minute

	// historySaveInterval limits how often history is written to the cache.
	historySaveInterval = 30 * time.Second

	// cpuDecay is applied to the previous CPU value when a window reads idle.
	cpuDecay = 0.92

	bytesPerMB = 1024 * 1024
	bytesPerGB = 1024 * 1024 * 1024
)

// Defaults for a zero Config.
const (
	DefaultInterval  = 2 * time.Second
	DefaultCPUWindow = 300 * time.Millisecond
	DefaultGPUTool   = "nvidia-smi"
)

// gpuQueryArgs asks nvidia-smi for the utilization of each GPU, one per line.
var gpuQueryArgs = []string{"--query-gpu=utilization.gpu", "--format=csv,noheader,nounits"}

// tempGroups are the sensor groups averaged for the CPU temperature, in
// priority order. Keys are compared after normalizeSensorKey.
var tempGroups = []string{"coretemp", "cpu-thermal", "Package id 0"}

// Config controls sampling.
type Config struct {
	// Interval is the collector polling interval.
	Interval time.Duration
	// CPUWindow is how long each CPU measurement blocks.
	CPUWindow time.Duration
	// HistorySize caps each history ring buffer.
	HistorySize int
	// GPUTool is the vendor utilization tool looked up on PATH. Empty disables GPU reads.
	GPUTool string
}

// counterRate turns a cumulative counter into a per-second rate.
type counterRate struct {
	prev   uint64
	ts     time.Time
	seeded bool
}

// update records cur and returns the rate since the previous call. The first
// call seeds the state and returns 0. A counter that went backwards (reset or
// wrap) yields 0 rather than a negative rate.
func (c *counterRate) update(cur uint64, now time.Time) float64 {
	if !c.seeded {
		c.prev, c.ts, c.seeded = cur, now, true
	}
	dt := math.Max(0.001, now.Sub(c.ts).Seconds())
	var delta uint64
	if cur > c.prev {
		delta = cur - c.prev
	}
	c.prev, c.ts = cur, now
	return float64(delta) / dt
}

// Sampler produces Snapshots and implements collectors.Collector. It holds
// the previous counters needed for rates, so one Sampler must not be used
// from several goroutines at once.
type Sampler struct {
	logger *slog.Logger
	cfg    Config
	store  *cache.Store

	lastCPU float64
	disk    counterRate
	net     counterRate

	historyLoaded bool
	lastSave      time.Time
	cpuHistory    []float64
	ramHistory    []float64
	diskHistory   []float64
	netHistory    []float64

	// Overridable collaborators for testing.
	provider Provider
	thermal  ThermalZoneReader
	runner   sysexec.Runner
	gpuPath  string
	now      func() time.Time
}

// NewSampler creates a Sampler backed by gopsutil. store may be nil, in which
// case history is not persisted. If logger is nil, a no-op logger is used.
func NewSampler(cfg Config, store *cache.Store, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.CPUWindow <= 0 {
		cfg.CPUWindow = DefaultCPUWindow
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = MaxHistorySamples
	}

	s := &Sampler{
		logger:   logger,
		cfg:      cfg,
		store:    store,
		provider: PSUtil{},
		thermal:  NewThermalZoneReader(),
		runner:   sysexec.NewExecRunner(logger),
		now:      time.Now,
	}
	if cfg.GPUTool != "" {
		s.gpuPath = sysexec.LookPath(cfg.GPUTool)
		if s.gpuPath == "" {
			logger.Debug("gpu tool not found, GPU usage unavailable", "tool", cfg.GPUTool)
		}
	}
	return s
}

// Sample reads every metric once. It never fails: a metric that cannot be
// read is reported as 0 or NA.
func (s *Sampler) Sample(ctx context.Context) Snapshot {
	snap, _ := s.sample(ctx)
	return snap
}

func (s *Sampler) sample(ctx context.Context) (Snapshot, []string) {
	var warnings []string
	warn := func(metric string, err error) {
		s.logger.Debug("metric unavailable", "metric", metric, "error", err)
		warnings = append(warnings, fmt.Sprintf("sysmetrics: %s: %v", metric, err))
	}

	snap := Snapshot{GPUText: NA, TempText: NA}

	cpu, err := s.provider.CPUPercent(ctx, s.cfg.CPUWindow)
	if err != nil {
		warn("cpu", err)
		cpu = 0
	}
	snap.CPUPercent = s.smoothCPU(cpu)

	if vm, err := s.provider.VirtualMemory(ctx); err != nil {
		warn("ram", err)
	} else {
		snap.RAMUsedGB = float64(vm.UsedBytes) / bytesPerGB
		snap.RAMPercent = clamp(vm.Percent, 0, 100)
	}

	if s.gpuPath != "" {
		text, err := s.readGPU(ctx)
		if err != nil {
			warn("gpu", err)
		}
		snap.GPUText = text
	}

	snap.TempText = s.readTemperature(ctx)

	now := s.now()
	snap.Timestamp = now
	if d, err := s.provider.DiskIO(ctx); err != nil {
		warn("disk", err)
	} else {
		snap.DiskMBps = s.disk.update(d.ReadBytes+d.WriteBytes, now) / bytesPerMB
	}
	if n, err := s.provider.NetIO(ctx); err != nil {
		warn("net", err)
	} else {
		snap.NetMbps = s.net.update(n.BytesSent+n.BytesRecv, now) * 8 / bytesPerMB
	}

	return snap, warnings
}

// smoothCPU keeps the gauge from dropping to zero when a short window lands
// entirely in idle time: the previous value decays instead.
func (s *Sampler) smoothCPU(cpu float64) float64 {
	cpu = clamp(cpu, 0, 100)
	if cpu <= 0.01 && s.lastCPU > 0 {
		cpu = s.lastCPU * cpuDecay
	}
	s.lastCPU = cpu
	return cpu
}

func (s *Sampler) readGPU(ctx context.Context) (string, error) {
	res, err := s.runner.Run(ctx, s.gpuPath, gpuQueryArgs...)
	if err != nil {
		return NA, err
	}
	if !res.OK() {
		return NA, fmt.Errorf("%s exited with status %d", s.cfg.GPUTool, res.ExitCode)
	}
	return parseGPUOutput(res.Stdout)
}

// parseGPUOutput formats the first GPU's utilization from nvidia-smi CSV output.
func parseGPUOutput(out string) (string, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return NA, errors.New("empty output")
	}
	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return NA, fmt.Errorf("parse %q: %w", line, err)
	}
	return fmt.Sprintf("%.0f%%", v), nil
}

func (s *Sampler) readTemperature(ctx context.Context) string {
	readings, err := s.provider.Temperatures(ctx)
	if err != nil {
		s.logger.Debug("sensor temperatures unavailable", "error", err)
	}
	if c, ok := averageTemperature(readings); ok {
		return formatCelsius(c)
	}

	zones, err := s.thermal.ThermalZones(ctx)
	if err != nil || len(zones) == 0 {
		s.logger.Debug("thermal zones unavailable", "error", err)
		return NA
	}
	return formatCelsius(decikelvinToCelsius(zones[0]))
}

// averageTemperature averages the readings of the first group in tempGroups
// that has any positive reading.
func averageTemperature(readings []TempReading) (float64, bool) {
	for _, group := range tempGroups {
		g := normalizeSensorKey(group)
		var sum float64
		var n int
		for _, r := range readings {
			if r.Celsius > 0 && strings.Contains(normalizeSensorKey(r.Key), g) {
				sum += r.Celsius
				n++
			}
		}
		if n > 0 {
			return sum / float64(n), true
		}
	}
	return 0, false
}

// normalizeSensorKey lower-cases a sensor key and maps spaces and dashes to
// underscores, so "Package id 0" matches gopsutil's "coretemp_package_id_0".
func normalizeSensorKey(key string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(key))
}

func decikelvinToCelsius(dk uint32) float64 {
	return float64(dk)/10 - 273.15
}

func formatCelsius(c float64) string {
	return fmt.Sprintf("%.0f°C", c)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Name returns the collector's unique identifier.
func (s *Sampler) Name() string {
	return collectorName
}

// Description returns a human-readable description of what this collector gathers.
func (s *Sampler) Description() string {
	return collectorDescription
}

// Interval returns the configured polling interval.
func (s *Sampler) Interval() time.Duration {
	return s.cfg.Interval
}

// Collect samples all metrics and appends them to the history buffers.
// On the first run it loads previous history from the cache so sparklines
// continue across restarts.
func (s *Sampler) Collect(ctx context.Context) (*collectors.CollectResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if !s.historyLoaded {
		s.loadHistory()
		s.historyLoaded = true
	}

	snap, warnings := s.sample(ctx)

	limit := s.cfg.HistorySize
	s.cpuHistory = appendAndTrim(s.cpuHistory, snap.CPUPercent, limit)
	s.ramHistory = appendAndTrim(s.ramHistory, snap.RAMPercent, limit)
	s.diskHistory = appendAndTrim(s.diskHistory, snap.DiskMBps, limit)
	s.netHistory = appendAndTrim(s.netHistory, snap.NetMbps, limit)

	data := s.data(snap)

	if s.store != nil && snap.Timestamp.Sub(s.lastSave) >= historySaveInterval {
		if err := cache.SetTyped(s.store, cacheKey, data); err != nil {
			s.logger.Warn("failed to save sysmetrics history", "error", err)
		}
		s.lastSave = snap.Timestamp
	}

	s.logger.Debug("sysmetrics collected",
		"cpu", fmt.Sprintf("%.1f%%", snap.CPUPercent),
		"ram", fmt.Sprintf("%.1f%%", snap.RAMPercent),
		"disk", fmt.Sprintf("%.1fMB/s", snap.DiskMBps),
		"net", fmt.Sprintf("%.2fMb/s", snap.NetMbps),
		"history_len", len(data.CPUHistory),
	)

	return &collectors.CollectResult{
		Collector: collectorName,
		Timestamp: snap.Timestamp,
		Data:      data,
		Warnings:  warnings,
	}, nil
}

// Flush writes the current history to the cache regardless of when it was
// last saved. It is a no-op without a store or before the first Collect.
func (s *Sampler) Flush() error {
	if s.store == nil || !s.historyLoaded {
		return nil
	}
	return cache.SetTyped(s.store, cacheKey, s.data(Snapshot{Timestamp: s.now()}))
}

func (s *Sampler) data(snap Snapshot) *SysMetricsData {
	return &SysMetricsData{
		Snapshot:    snap,
		CPUHistory:  cloneHistory(s.cpuHistory),
		RAMHistory:  cloneHistory(s.ramHistory),
		DiskHistory: cloneHistory(s.diskHistory),
		NetHistory:  cloneHistory(s.netHistory),
	}
}

// loadHistory restores ring buffers saved by a previous run, if recent.
func (s *Sampler) loadHistory() {
	if s.store == nil {
		return
	}
	prev, fresh, err := cache.GetTyped[SysMetricsData](s.store, cacheKey, historyTTL)
	if err != nil {
		s.logger.Debug("no previous sysmetrics history", "error", err)
		return
	}
	if prev == nil || !fresh {
		return
	}

	limit := s.cfg.HistorySize
	trim := func(h []float64) []float64 {
		if len(h) > limit {
			return h[len(h)-limit:]
		}
		return h
	}
	s.cpuHistory = trim(prev.CPUHistory)
	s.ramHistory = trim(prev.RAMHistory)
	s.diskHistory = trim(prev.DiskHistory)
	s.netHistory = trim(prev.NetHistory)

	s.logger.Debug("loaded previous sysmetrics history",
		"cpu_samples", len(s.cpuHistory),
		"net_samples", len(s.netHistory),
	)
}

// Compile-time interface compliance check.
var _ collectors.Collector = (*Sampler)(nil)
