package kernel

import (
	"runtime"

	"go.uber.org/zap"
)

// Userinit creates the first process (§4.5, the xv6 analogue of the boot
// sequence handing control to the init process), with no parent and
// pid 1. It must be called exactly once. Calling it before Boot is
// conventional, but not required for correctness: idle re-enqueues itself
// every time it is dispatched (idle.go), so a Userinit call racing with an
// already-running dispatcher is picked up on idle's very next yield.
func (k *Kernel) Userinit(name string, body Body) *Process {
	p, err := k.table.allocproc(k.pids)
	if err != nil {
		fatal("userinit: process table exhausted before boot")
	}

	p.mu.Lock()
	p.name = name
	p.state = Runnable
	p.body = body
	p.mu.Unlock()

	p.priority = 0
	p.ctx = newContext()
	k.init = p

	k.q.enqueue(p.priority, p, k.Ticks())
	k.events.Publish(Event{Kind: "enqueue", Pid: p.pid, Priority: 0, Tick: k.Ticks()})
	k.log.Info("init process created", zap.Int64("pid", p.pid), zap.String("name", name))
	return p
}

// Fork creates a child of parent: a fresh descriptor with a copied address
// space and duplicated file table, runnable at the parent's current
// priority with fresh ticksInQueue/entryTime (§4.5 — "child inherits
// parent's priority", matching the reference source's fork() copying
// `np->priority = p->priority` verbatim, proc.c:456).
func (k *Kernel) Fork(parent *Process, name string, body Body) (*Process, error) {
	child, err := k.table.allocproc(k.pids)
	if err != nil {
		return nil, err
	}

	parent.mu.Lock()
	parentAddr := parent.addr
	parentFiles := parent.files
	parent.mu.Unlock()
	parentPriority := parent.priority

	var childAddr AddressSpace
	if parentAddr != nil {
		var forkErr error
		childAddr, forkErr = parentAddr.Fork()
		if forkErr != nil {
			k.table.freeproc(child)
			k.log.Warn("fork failed: address space copy",
				zap.Int64("parent_pid", parent.pid), zap.Error(forkErr))
			return nil, forkErr
		}
	}

	child.mu.Lock()
	child.name = name
	child.state = Runnable
	child.body = body
	child.addr = childAddr
	if parentFiles != nil {
		child.files = parentFiles.Dup()
	}
	child.mu.Unlock()

	k.waitLock.Lock()
	child.parent = parent
	k.waitLock.Unlock()

	child.ctx = newContext()

	k.q.enqueue(parentPriority, child, k.Ticks())
	k.events.Publish(Event{Kind: "enqueue", Pid: child.pid, Priority: child.priority, Tick: k.Ticks()})
	k.log.Debug("fork succeeded",
		zap.Int64("parent_pid", parent.pid), zap.Int64("child_pid", child.pid),
		zap.Int("priority", parentPriority))
	return child, nil
}

// reparent gives every child of p to the init process, per §4.5 (the
// reference source's reparent(), proc.c:320), called while holding
// waitLock so no concurrent Wait can observe a half-reparented child.
func (k *Kernel) reparent(p *Process) {
	k.table.Each(func(child *Process) {
		child.mu.Lock()
		isChild := child.parent == p
		child.mu.Unlock()
		if !isChild {
			return
		}
		child.parent = k.init
		k.Wakeup(k.init)
	})
}

// Exit transitions p to ZOMBIE, reparents its children to init, and wakes
// its parent's Wait — then permanently relinquishes the CPU (§4.5). A
// Body must not execute any further code after calling Exit; like a real
// exit() syscall, it does not return.
func (k *Kernel) Exit(p *Process, status int) {
	if p.pid == 0 {
		k.log.Error("idle task attempted to exit", zap.Int64("pid", p.pid))
		fatal("exit: idle task must never exit")
	}
	if p == k.init {
		k.log.Error("init process attempted to exit", zap.Int64("pid", p.pid))
		fatal("exit: init exiting")
	}

	p.mu.Lock()
	already := p.state == Zombie
	p.mu.Unlock()
	if already {
		return
	}

	k.waitLock.Lock()
	k.reparent(p)
	parent := p.parent
	k.waitLock.Unlock()

	p.mu.Lock()
	p.xstate = status
	p.state = Zombie
	p.mu.Unlock()

	if parent != nil {
		k.Wakeup(parent)
	}

	k.events.Publish(Event{Kind: "exit", Pid: p.pid, Tick: k.Ticks()})
	k.log.Info("process exited", zap.Int64("pid", p.pid), zap.Int("status", status))

	cpu := k.cpuFor(p)
	k.relinquish(cpu, p, false)
	runtime.Goexit()
}

// Wait blocks the calling process until one of its children becomes a
// ZOMBIE, then reaps it (freeing its table slot) and returns its pid and
// exit status. Returns ErrNoSuchProcess if the caller has no children at
// all (§4.5, §7).
func (k *Kernel) Wait(cpu *CPU, p *Process) (int64, int, error) {
	for {
		k.waitLock.Lock()

		haveChildren := false
		var zombie *Process
		k.table.Each(func(child *Process) {
			child.mu.Lock()
			isChild := child.parent == p
			isZombie := isChild && child.state == Zombie
			child.mu.Unlock()
			if isChild {
				haveChildren = true
			}
			if isZombie && zombie == nil {
				zombie = child
			}
		})

		if !haveChildren {
			k.waitLock.Unlock()
			return 0, 0, ErrNoSuchProcess
		}

		if zombie != nil {
			zombie.mu.Lock()
			pid := zombie.pid
			xstate := zombie.xstate
			zombie.mu.Unlock()
			k.table.freeproc(zombie)
			k.waitLock.Unlock()
			k.log.Debug("reaped zombie child", zap.Int64("pid", pid), zap.Int("xstate", xstate))
			return pid, xstate, nil
		}

		p.mu.Lock()
		p.waitChan = p
		p.state = Sleeping
		p.mu.Unlock()
		k.waitLock.Unlock()

		k.relinquish(cpu, p, true)
	}
}

// Sleep puts the calling process to sleep on chanAddr — an arbitrary
// value used only for pointer/value identity, exactly as xv6's sleep/
// wakeup use a `void *chan` (§4.5). Resumed either by a matching Wakeup or
// by observing Killed() after being spuriously woken for that reason.
func (k *Kernel) Sleep(cpu *CPU, p *Process, chanAddr any) {
	p.mu.Lock()
	p.waitChan = chanAddr
	p.state = Sleeping
	p.mu.Unlock()

	k.events.Publish(Event{Kind: "sleep", Pid: p.pid, Priority: p.priority, Tick: k.Ticks()})
	k.relinquish(cpu, p, true)
}

// Wakeup makes every process sleeping on chanAddr RUNNABLE again and
// re-enqueues it at priority 0, exactly per §4.5: woken processes are
// heuristically treated as interactive, even though this can invert
// priorities relative to whoever is already running (§9 flags this as an
// accepted design choice, not a bug to correct).
func (k *Kernel) Wakeup(chanAddr any) {
	k.table.Each(func(p *Process) {
		p.mu.Lock()
		if p.state != Sleeping || p.waitChan != chanAddr {
			p.mu.Unlock()
			return
		}
		p.state = Runnable
		p.waitChan = nil
		p.mu.Unlock()

		k.q.enqueue(0, p, k.Ticks())
		k.events.Publish(Event{Kind: "wake", Pid: p.pid, Priority: 0, Tick: k.Ticks()})
	})
}

// Yield voluntarily gives up the remainder of the current quantum without
// changing priority (§4.3 distinguishes this from the preemptive demotion
// CheckPreempt performs on quantum exhaustion).
func (k *Kernel) Yield(cpu *CPU, p *Process) {
	p.mu.Lock()
	p.state = Runnable
	p.ticksInQueue = 0
	prio := p.priority
	p.mu.Unlock()

	k.q.enqueue(prio, p, k.Ticks())
	k.relinquish(cpu, p, true)
}

// Kill sets the advisory kill flag (§7) and, if the target is sleeping,
// forces it back to RUNNABLE at its current priority — unlike Wakeup, this
// touches only the targeted descriptor, and does not reset it to priority
// 0, per §4.5's "if SLEEPING, transition to RUNNABLE and enqueue at
// current priority" (distinct from the interactive-heuristic boost a
// matching Wakeup(chan) gives every sleeper on that channel). Mirrors the
// reference source's kill() forcing a sleeping victim back to RUNNABLE
// rather than leaving it parked indefinitely (proc.c:600-615).
func (k *Kernel) Kill(pid int64) error {
	p, ok := k.Lookup(pid)
	if !ok {
		k.log.Warn("kill: no such process", zap.Int64("pid", pid))
		return ErrNoSuchProcess
	}
	p.setKilled()
	k.events.Publish(Event{Kind: "kill", Pid: p.pid, Tick: k.Ticks()})
	k.log.Info("process killed", zap.Int64("pid", p.pid))

	p.mu.Lock()
	sleeping := p.state == Sleeping
	prio := p.priority
	if sleeping {
		p.state = Runnable
		p.waitChan = nil
	}
	p.mu.Unlock()

	if sleeping {
		k.q.enqueue(prio, p, k.Ticks())
		k.events.Publish(Event{Kind: "wake", Pid: p.pid, Priority: prio, Tick: k.Ticks()})
	}
	return nil
}

// Growproc resizes the calling process's address space by delta bytes
// (positive to grow, negative to shrink), the Go analogue of xv6's
// growproc() (proc.c:240).
func (k *Kernel) Growproc(p *Process, delta int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if delta >= 0 {
		_, err := p.addr.Grow(delta)
		return err
	}
	p.addr.Shrink(-delta)
	return nil
}
