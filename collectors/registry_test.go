package collectors

import (
	"context"
	"testing"
	"time"
)

// stubCollector is a minimal Collector implementation for registry tests.
type stubCollector struct {
	name string
}

func (s *stubCollector) Name() string                                      { return s.name }
func (s *stubCollector) Description() string                               { return "stub " + s.name }
func (s *stubCollector) Interval() time.Duration                           { return time.Minute }
func (s *stubCollector) Collect(_ context.Context) (*CollectResult, error) { return nil, nil }

// TestRegistry_RegisterAll verifies that multiple collectors can be registered
// and retrieved by name, and that All returns a copy of them.
func TestRegistry_RegisterAll(t *testing.T) {
	reg := NewRegistry()

	reg.Register(&stubCollector{name: "sysmetrics"})
	reg.Register(&stubCollector{name: "startup"})

	for _, want := range []string{"sysmetrics", "startup"} {
		got, ok := reg.Get(want)
		if !ok {
			t.Errorf("Get(%q) returned false, want true", want)
			continue
		}
		if got.Name() != want {
			t.Errorf("Get(%q).Name() = %q, want %q", want, got.Name(), want)
		}
	}

	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d collectors, want 2", len(all))
	}

	all[0] = &stubCollector{name: "mutated"}
	original, _ := reg.Get("sysmetrics")
	if original == nil || original.Name() != "sysmetrics" {
		t.Error("registry was mutated via All() slice")
	}
}

// TestRegistry_DuplicateRegistration verifies that registering a collector with
// the same name replaces the existing collector.
func TestRegistry_DuplicateRegistration(t *testing.T) {
	reg := NewRegistry()

	first := &stubCollector{name: "sysmetrics"}
	second := &stubCollector{name: "sysmetrics"}
	reg.Register(first)
	reg.Register(second)

	if n := len(reg.All()); n != 1 {
		t.Fatalf("All() returned %d collectors after duplicate registration, want 1", n)
	}
	got, _ := reg.Get("sysmetrics")
	if got != second {
		t.Error("Get(sysmetrics) did not return the replacement collector")
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	reg := NewRegistry()

	got, ok := reg.Get("nonexistent")
	if ok || got != nil {
		t.Errorf("Get(nonexistent) = %v, %v; want nil, false", got, ok)
	}
}

// TestRegistry_ListPreservesOrder verifies List and AllStatus follow registration order.
func TestRegistry_ListPreservesOrder(t *testing.T) {
	reg := NewRegistry()

	names := []string{"zebra", "alpha", "middle"}
	for _, name := range names {
		reg.Register(&stubCollector{name: name})
	}

	list := reg.List()
	statuses := reg.AllStatus()
	if len(list) != len(names) || len(statuses) != len(names) {
		t.Fatalf("List() = %v, AllStatus() has %d entries; want %d", list, len(statuses), len(names))
	}
	for i, want := range names {
		if list[i] != want {
			t.Errorf("List()[%d] = %q, want %q", i, list[i], want)
		}
		if statuses[i].Name != want || !statuses[i].Healthy {
			t.Errorf("AllStatus()[%d] = %+v, want healthy %q", i, statuses[i], want)
		}
	}
}

func TestRegistry_StatusMissing(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Status("nope"); ok {
		t.Error("Status(nope) returned true for unregistered collector")
	}
}
