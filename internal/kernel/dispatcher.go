package kernel

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// atomic64 wraps atomic.Int64 for the kernel's tick counter. A named type
// rather than the bare stdlib one so call sites read as load/add/store.
type atomic64 struct{ v atomic.Int64 }

func (a *atomic64) load() int64     { return a.v.Load() }
func (a *atomic64) add(delta int64) { a.v.Add(delta) }
func (a *atomic64) store(val int64) { a.v.Store(val) }

// context is the rendezvous point a process's goroutine parks on between
// dispatches. A real kernel's swtch() (proc.c) saves the outgoing
// process's callee-saved registers and restores the incoming one's; Go
// gives no way to suspend a goroutine's registers from the outside, so the
// handoff is expressed instead as a blocking channel send/receive pair:
// the dispatcher resumes a previously-parked process by sending its
// current CPU on resume, and the process gives the CPU back by receiving
// from it only after first signalling the CPU's back channel.
type context struct {
	resume chan *CPU
}

func newContext() context {
	return context{resume: make(chan *CPU)}
}

// schedule is the dispatcher: spec.md §4.2's six-step selection protocol,
// looped forever. It is the body of one CPU's bootstrap goroutine
// (Kernel.Boot) and never returns on its own goroutine; control returns to
// it only via cpu.back, signalled by relinquish whenever the running
// process gives up the CPU (blocks, yields, or exits).
func (k *Kernel) schedule(cpu *CPU) {
	for {
		next := k.pickNext()

		next.mu.Lock()
		next.state = Running
		priority := next.priority
		next.mu.Unlock()
		cpu.setCurrent(next)

		if next.started.CompareAndSwap(false, true) {
			k.log.Debug("dispatching new process",
				zap.Int64("pid", next.pid), zap.Int("priority", priority))
			go k.runProcess(cpu, next)
		} else {
			next.ctx.resume <- cpu
		}

		<-cpu.back
	}
}

// pickNext implements the priority scan of §4.2 steps 1-4: walk priority
// levels 0 (highest) through N-1, dequeue the first RUNNABLE process
// found, or fall back to idle if every level is empty. The scheduler lock
// is held for the whole scan so a concurrent enqueue cannot be missed or
// double-claimed, mirroring the reference source's scheduler() holding
// mlfq_lock across its own level walk (proc.c:150-175).
func (k *Kernel) pickNext() *Process {
	k.q.mu.Lock()
	defer k.q.mu.Unlock()

	for lvl := 0; lvl < k.q.nlevels(); lvl++ {
		for p := k.q.levels[lvl].pop(); p != nil; p = k.q.levels[lvl].pop() {
			p.mu.Lock()
			runnable := p.state == Runnable
			p.mu.Unlock()
			if runnable {
				return p
			}
			// stale entry: discarded
		}
	}
	return k.idle
}

// runProcess is a process descriptor's goroutine entry point, launched
// exactly once per (slot, generation) pair on its first dispatch. Running
// off the end of Body triggers an implicit Exit(0), the same way a user
// program returning from main does (§4.5). The init process is the
// exception, since Exit treats init exiting as fatal: once its Body
// returns it keeps reaping the orphans reparented to it, sleeping on
// itself whenever it has no children.
func (k *Kernel) runProcess(cpu *CPU, p *Process) {
	if p.body != nil {
		p.body(k, p)
	}
	if p == k.init {
		for {
			if _, _, err := k.Wait(k.cpuFor(p), p); err != nil {
				k.Sleep(k.cpuFor(p), p, p)
			}
		}
	}
	k.Exit(p, 0)
}

// relinquish hands the CPU back to the dispatcher on cpu.back, then — if
// the caller is still a live process awaiting a future dispatch rather
// than one that just exited — blocks on its own resume channel until the
// dispatcher selects it again. Sleep, Yield, and the pre-exit tail of Exit
// all route through this single chokepoint, the same way the reference
// source funnels every voluntary context switch through sched() (proc.c).
func (k *Kernel) relinquish(cpu *CPU, p *Process, parkForResume bool) {
	cpu.back <- struct{}{}
	if parkForResume {
		<-p.ctx.resume
	}
}
