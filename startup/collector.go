package startup

import (
	"context"
	"time"

	"gitlab.com/tinyland/lab/cloud-optimizer/collectors"
)

const (
	collectorName        = "startup"
	collectorDescription = "Startup items from the Run keys and Startup folders"

	// DefaultRefreshInterval is how often the collector relists entries.
	DefaultRefreshInterval = 30 * time.Second
)

// Data is the payload of a startup collection.
type Data struct {
	Active   []Entry         `json:"active"`
	Disabled []DisabledEntry `json:"disabled"`
}

// Collector lists active and disabled startup items on a fixed interval so
// the TUI reflects changes made outside the program.
type Collector struct {
	inv      *Inventory
	interval time.Duration
}

// NewCollector wraps inv. A non-positive interval uses DefaultRefreshInterval.
func NewCollector(inv *Inventory, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Collector{inv: inv, interval: interval}
}

func (c *Collector) Name() string            { return collectorName }
func (c *Collector) Description() string     { return collectorDescription }
func (c *Collector) Interval() time.Duration { return c.interval }

// Collect implements collectors.Collector. Listing never fails, so the only
// error is a cancelled context.
func (c *Collector) Collect(ctx context.Context) (*collectors.CollectResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := &Data{
		Active:   c.inv.ListActive(ctx),
		Disabled: c.inv.ListDisabled(ctx),
	}

	var warnings []string
	if !c.inv.isElevated() {
		warnings = append(warnings, "not elevated: HKLM entries are read-only")
	}

	return &collectors.CollectResult{
		Collector: collectorName,
		Timestamp: time.Now(),
		Data:      data,
		Warnings:  warnings,
	}, nil
}

var _ collectors.Collector = (*Collector)(nil)
