//go:build windows

package sysmetrics

import (
	"context"

	"github.com/yusufpapurcu/wmi"
)

type msAcpiThermalZoneTemperature struct {
	CurrentTemperature uint32
}

// WMIThermal reads ACPI thermal zones from root\wmi. Most machines only
// expose them to administrators.
type WMIThermal struct{}

// NewThermalZoneReader returns the platform thermal-zone reader.
func NewThermalZoneReader() ThermalZoneReader {
	return WMIThermal{}
}

// ThermalZones implements ThermalZoneReader.
func (WMIThermal) ThermalZones(ctx context.Context) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var dst []msAcpiThermalZoneTemperature
	q := "SELECT CurrentTemperature FROM MSAcpi_ThermalZoneTemperature"
	if err := wmi.QueryNamespace(q, &dst, `root\wmi`); err != nil {
		return nil, err
	}
	out := make([]uint32, 0, len(dst))
	for _, z := range dst {
		out = append(out, z.CurrentTemperature)
	}
	return out, nil
}
