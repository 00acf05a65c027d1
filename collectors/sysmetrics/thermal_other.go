//go:build !windows

package sysmetrics

import "context"

type noThermal struct{}

// NewThermalZoneReader returns the platform thermal-zone reader. Outside
// Windows there is none; gopsutil sensors cover Linux and macOS.
func NewThermalZoneReader() ThermalZoneReader {
	return noThermal{}
}

func (noThermal) ThermalZones(context.Context) ([]uint32, error) {
	return nil, errNoData
}
