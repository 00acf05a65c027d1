package tui

import (
	"fmt"
	"strings"

	"gitlab.com/tinyland/lab/cloud-optimizer/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/cloud-optimizer/display/widgets"
)

// renderMonitorContent renders the Monitor tab: gauges for CPU and RAM,
// plain values for GPU and temperature, throughput for disk and network,
// and history sparklines when the layout has room.
func renderMonitorContent(data *sysmetrics.SysMetricsData, warnings []string, lc LayoutConfig, width int) string {
	if data == nil {
		return styleMuted.Render("Waiting for the first sample...")
	}

	spark := func(history []float64, top float64) string {
		if !lc.ShowSparklines {
			return ""
		}
		return "  " + widgets.RenderSparkline(widgets.SparklineConfig{
			Data:  history,
			Width: lc.SparklineWidth,
			Max:   top,
			Color: activeTheme.Secondary,
		})
	}
	label := func(s string) string {
		return styleLabel.Render(fmt.Sprintf("%-5s", s))
	}
	f := data.Formatted()

	lines := []string{
		styleTitle.Render(sectionTitle("System", min(width, 60))),
		"",
		label("CPU") + " " + widgets.RenderGauge(widgets.GaugeConfig{
			Width:   lc.GaugeWidth,
			Percent: data.CPUPercent,
		}) + spark(data.CPUHistory, 100),
		label("RAM") + " " + widgets.RenderGauge(widgets.GaugeConfig{
			Width:   lc.GaugeWidth,
			Percent: data.RAMPercent,
			Value:   fmt.Sprintf("%3.0f%% %s", data.RAMPercent, f["RAM"]),
		}) + spark(data.RAMHistory, 100),
		label("GPU") + " " + naStyled(f["GPU"]),
		label("Temp") + " " + naStyled(f["Temp"]),
		label("Disk") + " " + fmt.Sprintf("%-12s", f["Disk"]) + spark(data.DiskHistory, 0),
		label("Net") + " " + fmt.Sprintf("%-12s", f["Net"]) + spark(data.NetHistory, 0),
	}

	if len(warnings) > 0 {
		lines = append(lines, "")
		for _, w := range warnings {
			lines = append(lines, styleMuted.Render("! "+truncateText(w, max(width-6, 10))))
		}
	}

	return strings.Join(lines, "\n")
}

func naStyled(s string) string {
	if s == "" || s == sysmetrics.NA {
		return styleMuted.Render(sysmetrics.NA)
	}
	return s
}
