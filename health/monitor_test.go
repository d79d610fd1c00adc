package health

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

func TestMonitor_UpdateAndGet(t *testing.T) {
	monitor := NewMonitor()

	monitor.UpdateHealthy("socket-input", "connected")

	status, exists := monitor.Get("socket-input")
	if !exists {
		t.Fatal("expected status for socket-input")
	}
	if !status.IsHealthy() {
		t.Error("expected healthy status")
	}
	if status.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}

	_, exists = monitor.Get("missing")
	if exists {
		t.Error("expected no status for unknown component")
	}
}

func TestMonitor_UpdateForcesComponentName(t *testing.T) {
	monitor := NewMonitor()

	monitor.Update("wordcount", NewHealthy("wrong-name", "running"))

	status, _ := monitor.Get("wordcount")
	if status.Component != "wordcount" {
		t.Errorf("expected component name wordcount, got %q", status.Component)
	}
}

func TestMonitor_GetAll(t *testing.T) {
	monitor := NewMonitor()

	monitor.UpdateHealthy("socket-input", "connected")
	monitor.UpdateDegraded("wordcount", "window behind schedule")

	all := monitor.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(all))
	}

	// Mutating the returned map must not affect the monitor
	delete(all, "socket-input")
	if monitor.Count() != 2 {
		t.Error("GetAll should return a copy")
	}
}

func TestMonitor_Remove(t *testing.T) {
	monitor := NewMonitor()

	monitor.UpdateHealthy("console-output", "writing")
	monitor.Remove("console-output")

	if _, exists := monitor.Get("console-output"); exists {
		t.Error("expected status to be removed")
	}

	// Removing a missing component is a no-op
	monitor.Remove("console-output")
}

func TestMonitor_AggregateHealth(t *testing.T) {
	monitor := NewMonitor()

	agg := monitor.AggregateHealth("wordstream")
	if !agg.IsHealthy() {
		t.Error("empty monitor should aggregate healthy")
	}

	monitor.UpdateHealthy("socket-input", "connected")
	monitor.UpdateHealthy("wordcount", "running")

	agg = monitor.AggregateHealth("wordstream")
	if !agg.IsHealthy() {
		t.Error("all healthy should aggregate healthy")
	}
	if len(agg.SubStatuses) != 2 {
		t.Errorf("expected 2 sub-statuses, got %d", len(agg.SubStatuses))
	}

	monitor.UpdateDegraded("console-output", "slow writer")
	agg = monitor.AggregateHealth("wordstream")
	if !agg.IsDegraded() {
		t.Error("degraded component should aggregate degraded")
	}

	monitor.UpdateUnhealthy("socket-input", "dial failed")
	agg = monitor.AggregateHealth("wordstream")
	if !agg.IsUnhealthy() {
		t.Error("unhealthy component should aggregate unhealthy")
	}
}

func TestMonitor_ListComponentsAndClear(t *testing.T) {
	monitor := NewMonitor()

	monitor.UpdateHealthy("socket-input", "connected")
	monitor.UpdateHealthy("wordcount", "running")

	names := monitor.ListComponents()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "socket-input" || names[1] != "wordcount" {
		t.Errorf("unexpected component names: %v", names)
	}

	monitor.Clear()
	if monitor.Count() != 0 {
		t.Error("expected empty monitor after Clear")
	}
}

func TestMonitor_ConcurrentAccess(t *testing.T) {
	monitor := NewMonitor()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("component-%d", n)
			monitor.UpdateHealthy(name, "running")
			monitor.Get(name)
			monitor.AggregateHealth("wordstream")
		}(i)
	}
	wg.Wait()

	if monitor.Count() != 10 {
		t.Errorf("expected 10 components, got %d", monitor.Count())
	}
}
