package tweaks

import (
	"time"

	"gitlab.com/tinyland/lab/cloud-optimizer/cache"
)

const historyKey = "tweaks"

// Record is the last outcome of one tweak.
type Record struct {
	AppliedAt time.Time `json:"applied_at"`
	OK        bool      `json:"ok"`
	Summary   string    `json:"summary"`
}

// History returns the last recorded outcome per tweak ID. It is empty when
// no store is configured or nothing has been applied yet.
func (c *Catalog) History() map[string]Record {
	if c.store == nil {
		return map[string]Record{}
	}
	// Records never expire; the TTL only decides freshness, which is unused here.
	h, _, err := cache.GetTyped[map[string]Record](c.store, historyKey, time.Hour)
	if err != nil {
		c.logger.Debug("tweak history unavailable", "error", err)
	}
	if h == nil || *h == nil {
		return map[string]Record{}
	}
	return *h
}

func (c *Catalog) record(id string, res Result, err error) {
	if c.store == nil {
		return
	}
	h := c.History()
	rec := Record{AppliedAt: c.now(), OK: err == nil, Summary: res.Message}
	if err != nil {
		rec.Summary = err.Error()
	}
	h[id] = rec
	if err := cache.SetTyped(c.store, historyKey, &h); err != nil {
		c.logger.Warn("failed to save tweak history", "error", err)
	}
}
