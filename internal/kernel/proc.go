package kernel

import (
	"sync"
	"sync/atomic"
)

// State is the process descriptor's lifecycle stage (§3).
type State int

const (
	Unused State = iota
	Used
	Sleeping
	Runnable
	Running
	Zombie
)

func (s State) String() string {
	switch s {
	case Unused:
		return "UNUSED"
	case Used:
		return "USED"
	case Sleeping:
		return "SLEEPING"
	case Runnable:
		return "RUNNABLE"
	case Running:
		return "RUNNING"
	case Zombie:
		return "ZOMBIE"
	default:
		return "???"
	}
}

// Body is the user-level program a process descriptor runs. It is called on
// the process's own goroutine once the dispatcher first selects it, and it
// is handed the Kernel so it can call back into Sleep/Yield/Fork/Exit/etc.
// A Body that returns normally triggers an implicit Exit(0), the same way a
// user program returning from main does; init's Body is the exception (see
// Kernel.runProcess).
type Body func(k *Kernel, p *Process)

// Process is the kernel's per-process record (the PD of §3).
//
// Per §5's lock hierarchy, p.mu guards state, waitChan, killed, xstate, and
// parent-reads-taken-outside-waitLock's scope. priority, ticksInQueue, and
// entryTime are queue-membership bookkeeping: the mlfq writes them under its
// scheduler lock (enqueue, ageBoost), but they are also written outside it —
// allocproc resets them under p.mu, Userinit and initIdle set priority
// directly, and clockLoop, Yield and CheckPreempt update ticksInQueue under
// p.mu.
type Process struct {
	pid  int64
	name string

	mu        sync.Mutex
	state     State
	waitChan  any
	killed    bool
	xstate    int
	parent    *Process // mutated only under Kernel.waitLock (§3 invariant 6)

	priority     int
	ticksInQueue int
	entryTime    int64

	preempt atomic.Bool // cooperative safepoint flag, set by clockLoop
	started atomic.Bool // true once this (slot, gen)'s goroutine has been launched

	addr  AddressSpace
	files FileTable

	body Body
	ctx  context

	// slot/gen identify this descriptor's table position and its
	// generation, so a stale reference to a freed-then-reallocated slot
	// can be detected instead of silently observing a new identity
	// (§9 "descriptor identity across reuse").
	slot int
	gen  uint64
}

// Pid returns the process's pid. Safe without a lock: pid is assigned once
// in allocproc and never mutated until freeproc, which only happens after
// the process is unreachable from any queue or running CPU.
func (p *Process) Pid() int64 { return p.pid }

// Name returns the process's debug label.
func (p *Process) Name() string { return p.name }

func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Process) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Killed reports the advisory kill flag (§7 "advisory").
func (p *Process) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

func (p *Process) setKilled() {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
}

// Priority returns the process's current MLFQ level. Only meaningful while
// the process is enqueued or running; callers that need a consistent
// snapshot across priority and state should prefer Kernel.Snapshot.
func (p *Process) Priority() int {
	return p.priority
}

// Table is the fixed-size process table of §3: an array of descriptors,
// each with its own lock, slot 0 reserved for the idle task (§4.6, §9).
type Table struct {
	mu    sync.Mutex // guards slot scanning in allocproc only
	procs []*Process
}

func newTable(size int) *Table {
	t := &Table{procs: make([]*Process, size)}
	for i := range t.procs {
		t.procs[i] = &Process{
			slot:  i,
			state: Unused,
		}
	}
	return t
}

// allocproc scans for an UNUSED slot (skipping slot 0, reserved for idle per
// §9), installs a fresh pid/address space/trapframe-equivalent, and returns
// it in the USED state with its lock released: the returned Process is not
// yet visible to the scheduler until the caller enqueues it.
func (t *Table) allocproc(pids *pidAllocator) (*Process, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, p := range t.procs {
		if i == 0 {
			continue // idle task's permanent slot
		}
		p.mu.Lock()
		if p.state == Unused {
			p.pid = pids.alloc()
			p.state = Used
			p.killed = false
			p.xstate = 0
			p.waitChan = nil
			p.parent = nil
			p.priority = 0
			p.ticksInQueue = 0
			p.addr = newAddressSpace()
			p.files = newOpenFiles("/")
			p.gen++
			p.started.Store(false)
			p.preempt.Store(false)
			p.ctx = newContext()
			p.mu.Unlock()
			return p, nil
		}
		p.mu.Unlock()
	}
	return nil, ErrNoFreeProc
}

// freeproc clears a ZOMBIE descriptor back to UNUSED (§3 invariant 5),
// releasing its address space and files. Called with p.mu released by the
// caller (Wait holds Kernel.waitLock, not p.mu, while calling this).
func (t *Table) freeproc(p *Process) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.addr != nil {
		p.addr.Free()
	}
	if p.files != nil {
		p.files.CloseAll()
	}
	p.addr = nil
	p.files = nil
	p.pid = 0
	p.parent = nil
	p.name = ""
	p.waitChan = nil
	p.killed = false
	p.xstate = 0
	p.body = nil
	p.state = Unused
}

// Each iterates every descriptor, UNUSED slots included; callers filter by
// state themselves. Used by reparent, wakeup, kill,
// and Kernel.Snapshot — all of which need a full table scan per the
// reference source's style (proc.c's `for(p = proc; p < &proc[NPROC]; p++)`
// loops).
func (t *Table) Each(fn func(p *Process)) {
	for _, p := range t.procs {
		fn(p)
	}
}
