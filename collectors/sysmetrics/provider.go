package sysmetrics

import (
	"context"
	"errors"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"
)

// Memory is a virtual memory reading.
type Memory struct {
	UsedBytes uint64
	Percent   float64
}

// DiskCounters are cumulative byte counters since boot, summed over disks.
type DiskCounters struct {
	ReadBytes  uint64
	WriteBytes uint64
}

// NetCounters are cumulative byte counters since boot, summed over interfaces.
type NetCounters struct {
	BytesSent uint64
	BytesRecv uint64
}

// TempReading is one hardware sensor reading in degrees Celsius.
type TempReading struct {
	Key     string
	Celsius float64
}

// Provider reads raw OS metrics.
type Provider interface {
	// CPUPercent blocks for window and returns the average busy percentage.
	CPUPercent(ctx context.Context, window time.Duration) (float64, error)
	VirtualMemory(ctx context.Context) (Memory, error)
	DiskIO(ctx context.Context) (DiskCounters, error)
	NetIO(ctx context.Context) (NetCounters, error)
	Temperatures(ctx context.Context) ([]TempReading, error)
}

// ThermalZoneReader is the fallback temperature source. It returns raw
// readings in tenths of a kelvin.
type ThermalZoneReader interface {
	ThermalZones(ctx context.Context) ([]uint32, error)
}

var errNoData = errors.New("sysmetrics: no data")

// PSUtil is the gopsutil-backed Provider.
type PSUtil struct{}

// CPUPercent implements Provider.
func (PSUtil) CPUPercent(ctx context.Context, window time.Duration) (float64, error) {
	pct, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return 0, err
	}
	if len(pct) == 0 {
		return 0, errNoData
	}
	return pct[0], nil
}

// VirtualMemory implements Provider.
func (PSUtil) VirtualMemory(ctx context.Context) (Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, err
	}
	return Memory{UsedBytes: vm.Used, Percent: vm.UsedPercent}, nil
}

// DiskIO implements Provider, summing all physical disks.
func (PSUtil) DiskIO(ctx context.Context) (DiskCounters, error) {
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return DiskCounters{}, err
	}
	var c DiskCounters
	for _, d := range counters {
		c.ReadBytes += d.ReadBytes
		c.WriteBytes += d.WriteBytes
	}
	return c, nil
}

// NetIO implements Provider over all interfaces combined.
func (PSUtil) NetIO(ctx context.Context) (NetCounters, error) {
	counters, err := psnet.IOCountersWithContext(ctx, false)
	if err != nil {
		return NetCounters{}, err
	}
	if len(counters) == 0 {
		return NetCounters{}, errNoData
	}
	return NetCounters{BytesSent: counters[0].BytesSent, BytesRecv: counters[0].BytesRecv}, nil
}

// Temperatures implements Provider. Readings gopsutil did obtain are returned
// even when it also reports an error for other sensors.
func (PSUtil) Temperatures(ctx context.Context) ([]TempReading, error) {
	stats, err := sensors.TemperaturesWithContext(ctx)
	out := make([]TempReading, 0, len(stats))
	for _, s := range stats {
		out = append(out, TempReading{Key: s.SensorKey, Celsius: s.Temperature})
	}
	if len(out) > 0 {
		return out, nil
	}
	return nil, err
}

var _ Provider = PSUtil{}
