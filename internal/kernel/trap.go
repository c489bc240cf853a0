package kernel

import (
	"time"

	"go.uber.org/zap"
)

// clockLoop is the Go analogue of the timer interrupt handler (xv6's
// clockintr, proc.c's tick counting): it advances the tick counter once
// per cfg.TickInterval and, for whichever process is RUNNING on each CPU,
// accounts one tick against its current quantum and raises the
// cooperative preemption flag once that quantum is exhausted.
//
// Real timer interrupts force-preempt whatever instruction the CPU is
// executing. Go cannot do that to another goroutine's user code, so
// instead clockLoop only ever sets an atomic flag; the process body must
// itself call CheckPreempt at a safepoint (spec.md's accounting model
// still holds — what changes is *when* the preemption actually takes
// effect, not whether the accounting is accurate). This divergence from
// true async preemption is recorded as an open-question resolution in
// DESIGN.md.
func (k *Kernel) clockLoop() {
	interval := k.cfg.TickInterval
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-k.stop:
			return
		case <-ticker.C:
			k.ticks.add(1)
			now := k.Ticks()

			for _, cpu := range k.cpus {
				p := cpu.Current()
				if p == nil || p.pid == 0 {
					continue
				}
				p.mu.Lock()
				p.ticksInQueue++
				quantum := k.cfg.Quanta[k.q.clamp(p.priority)]
				exhausted := p.ticksInQueue >= quantum
				p.mu.Unlock()
				if exhausted {
					p.preempt.Store(true)
				}
			}

			if period := k.cfg.AgeBoostPeriod; period > 0 && now%period == 0 {
				promoted := k.q.ageBoost(now, k.cfg.AgeThreshold)
				for _, p := range promoted {
					k.events.Publish(Event{Kind: "boost", Pid: p.pid, Priority: p.priority, Tick: now})
				}
				if len(promoted) > 0 {
					k.log.Debug("age-boost pass promoted processes",
						zap.Int("count", len(promoted)),
						zap.Int64("tick", now))
				}
			}
		}
	}
}

// CheckPreempt is the cooperative safepoint a process Body calls between
// units of work (spec.md §4.3's quantum-exhaustion demotion). If the clock
// has flagged this process for preemption, CheckPreempt demotes it one
// MLFQ level (clamped at the bottom), re-enqueues it RUNNABLE, and blocks
// the calling goroutine until the dispatcher resumes it — mirroring
// yield()'s call to sched() in the reference source (proc.c:555-575)
// exactly at the point a timer tick would have fired.
func (k *Kernel) CheckPreempt(cpu *CPU, p *Process) {
	if !p.preempt.CompareAndSwap(true, false) {
		return
	}

	p.mu.Lock()
	p.state = Runnable
	p.ticksInQueue = 0
	demoted := k.q.clamp(p.priority + 1)
	p.mu.Unlock()

	k.q.enqueue(demoted, p, k.Ticks())
	k.events.Publish(Event{Kind: "demote", Pid: p.pid, Priority: demoted, Tick: k.Ticks()})
	k.log.Debug("quantum exhausted, demoting",
		zap.Int64("pid", p.pid),
		zap.Int("to_priority", demoted),
		zap.Int64("tick", k.Ticks()))

	k.relinquish(cpu, p, true)
}
