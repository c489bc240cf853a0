package workload

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haldane/mlfqkernel/internal/kernel"
)

// eventCollector is a minimal kernel.EventSink that records every event it
// sees, guarded by a mutex since Publish can be called from any CPU's
// dispatcher goroutine or the clock goroutine concurrently.
type eventCollector struct {
	mu     sync.Mutex
	events []kernel.Event
}

func (c *eventCollector) Publish(e kernel.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *eventCollector) countKind(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func newTestKernel(t *testing.T, cfg kernel.Config, events kernel.EventSink) *kernel.Kernel {
	t.Helper()
	k := kernel.New(zap.NewNop(), cfg, events)
	k.Boot()
	t.Cleanup(k.Shutdown)
	return k
}

// TestCPUIntensive_DemotesToLowestPriority boots a real Kernel and runs
// workload.CPUIntensive as an actual forked process through real clock
// ticks, giving literal end-to-end coverage of the CPU-bound demotion
// scenario: a process that never blocks exhausts its quantum at every
// level and bottoms out at the lowest priority.
func TestCPUIntensive_DemotesToLowestPriority(t *testing.T) {
	cfg := kernel.DefaultConfig()
	cfg.TableSize = 16
	cfg.TickInterval = time.Millisecond
	cfg.NumCPU = 1
	k := newTestKernel(t, cfg, nil)

	log := zap.NewNop()
	ready := make(chan *kernel.Process, 1)

	k.Userinit("init", func(k *kernel.Kernel, p *kernel.Process) {
		child, err := k.Fork(p, "cpu-bound", CPUIntensive(log, 20_000_000))
		if err != nil {
			close(ready)
			return
		}
		ready <- child
		k.Wait(k.CPUFor(p), p)
	})

	child, ok := <-ready
	require.True(t, ok, "fork of cpu-bound workload failed")

	lowest := len(cfg.Quanta) - 1
	deadline := time.Now().Add(3 * time.Second)
	for child.Priority() < lowest && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	require.Equal(t, lowest, child.Priority(),
		"cpu-bound process should demote to the lowest priority level within its quantum budget")
}

// TestAgingScenario_PromotesStarvedProcesses boots a real Kernel with a
// short aging threshold/period and runs workload.AgingScenario end to end,
// asserting the periodic age-boost pass (internal/kernel's clockLoop
// calling mlfq.ageBoost) actually fires and promotes at least one queued
// process — literal coverage of the aging-prevents-starvation scenario,
// distinct from aging_test.go's direct unit test of mlfq.ageBoost alone.
func TestAgingScenario_PromotesStarvedProcesses(t *testing.T) {
	cfg := kernel.DefaultConfig()
	cfg.TableSize = 32
	cfg.TickInterval = time.Millisecond
	cfg.AgeThreshold = 8
	cfg.AgeBoostPeriod = 4
	cfg.NumCPU = 1
	sink := &eventCollector{}
	k := newTestKernel(t, cfg, sink)

	log := zap.NewNop()
	done := make(chan struct{})

	k.Userinit("init", func(k *kernel.Kernel, p *kernel.Process) {
		defer close(done)
		AgingScenario(log, 4, 4)(k, p)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("aging scenario did not complete in time")
	}

	require.Greater(t, sink.countKind("boost"), 0,
		"expected the age-boost pass to promote at least one starved process over the scenario's lifetime")
}
