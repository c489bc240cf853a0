package kernel

import "go.uber.org/zap"

// ageBoost implements spec.md §4.4: scanning priorities N-1 down to 1,
// collecting every descriptor other than the idle task (pid 0, which stays
// at the lowest level) that has waited longer than threshold ticks
// at its current level, then promoting each one level. The collect-then-
// mutate split is mandatory (not a style choice): removeAt shifts ring
// indices, so mutating the ring while iterating it would skip or
// double-visit entries.
//
// This runs entirely under m.mu (the scheduler lock) rather than calling
// the public remove/enqueue (which would re-acquire it) — the same
// single-critical-section shape the reference source's age_boost uses
// around mlfq_remove/mlfq_enqueue (proc.c:110-137), just without the
// redundant lock/unlock pairs since we already hold it here.
//
// It returns every process it promoted, so callers that want to publish
// telemetry for the pass (Kernel.clockLoop) don't need their own lock/scan
// over the queues.
func (m *mlfq) ageBoost(now, threshold int64) []*Process {
	m.mu.Lock()
	defer m.mu.Unlock()

	var promoted []*Process

	for prio := len(m.levels) - 1; prio > 0; prio-- {
		ring := m.levels[prio]

		var stale []*Process
		for i := 0; i < ring.count; i++ {
			p := ring.at(i)
			if p.pid != 0 && now-p.entryTime > threshold {
				stale = append(stale, p)
			}
		}

		for _, p := range stale {
			ring.removeAt(p)
			target := prio - 1
			m.levels[target].push(p)
			p.priority = target
			p.ticksInQueue = 0
			p.entryTime = now
			promoted = append(promoted, p)
			m.log.Debug("aged process promoted",
				zap.Int64("pid", p.pid),
				zap.Int("from_priority", prio),
				zap.Int("to_priority", target),
				zap.Int64("tick", now))
		}
	}

	return promoted
}
