package kernel

import (
	"sync"

	"go.uber.org/zap"
)

// ring is a bounded circular FIFO of process references, one per MLFQ
// priority level. Its index arithmetic is grounded on the teacher's
// logBuffer (processmgr/log_buffer.go): a fixed-size array with front/rear/
// count and modulo-advancing indices. logBuffer overwrites its oldest entry
// when full, because a log is allowed to lose old lines; a run queue is
// not — capacity here equals the process-table size, so a full ring means
// an invariant already broke elsewhere (§4.1), and enqueue panics rather
// than silently dropping the entry.
type ring struct {
	procs []*Process
	front int
	rear  int
	count int
}

func newRing(capacity int) *ring {
	return &ring{procs: make([]*Process, capacity)}
}

func (r *ring) push(p *Process) {
	if r.count == len(r.procs) {
		fatal("mlfq queue overflow: capacity equals process-table size, so a full queue means invariant 1 already broke")
	}
	r.procs[r.rear] = p
	r.rear = (r.rear + 1) % len(r.procs)
	r.count++
}

func (r *ring) pop() *Process {
	if r.count == 0 {
		return nil
	}
	p := r.procs[r.front]
	r.procs[r.front] = nil
	r.front = (r.front + 1) % len(r.procs)
	r.count--
	return p
}

// removeAt finds p in the ring by linear scan and compacts successors
// leftward, exactly per spec.md §4.1 ("compacts by shifting successors;
// decrements rear and count"). This intentionally does NOT replicate the
// reference source's mlfq_remove bug (proc.c:83), which decrements rear
// unconditionally even when the removed element isn't the last one,
// silently corrupting the ring's indices — spec.md flags this explicitly
// as a bug the implementer should not repeat (§9).
func (r *ring) removeAt(p *Process) {
	for i := 0; i < r.count; i++ {
		idx := (r.front + i) % len(r.procs)
		if r.procs[idx] != p {
			continue
		}
		for j := i; j < r.count-1; j++ {
			cur := (r.front + j) % len(r.procs)
			next := (r.front + j + 1) % len(r.procs)
			r.procs[cur] = r.procs[next]
		}
		last := (r.front + r.count - 1) % len(r.procs)
		r.procs[last] = nil
		r.count--
		r.rear = (r.rear - 1 + len(r.procs)) % len(r.procs)
		return
	}
}

func (r *ring) at(i int) *Process {
	return r.procs[(r.front+i)%len(r.procs)]
}

// mlfq is the N-level multi-level feedback queue of §3/§4.1: N rings
// sharing one scheduler lock. A single lock trades per-queue contention for
// simple deadlock-free reasoning, which is acceptable given queues are
// bounded by the (small) process-table size — the same rationale spec.md
// §4.1 gives and the reference source's single mlfq_lock follows.
type mlfq struct {
	log    *zap.Logger
	mu     sync.Mutex
	levels []*ring
	quanta []int
}

func newMLFQ(log *zap.Logger, nlevels, capacity int, quanta []int) *mlfq {
	if log == nil {
		log = zap.NewNop()
	}
	levels := make([]*ring, nlevels)
	for i := range levels {
		levels[i] = newRing(capacity)
	}
	q := make([]int, nlevels)
	copy(q, quanta)
	return &mlfq{log: log, levels: levels, quanta: q}
}

func (m *mlfq) nlevels() int { return len(m.levels) }

func (m *mlfq) clamp(priority int) int {
	if priority < 0 {
		return 0
	}
	if priority >= len(m.levels) {
		return len(m.levels) - 1
	}
	return priority
}

// enqueue appends p onto the given priority level iff it is RUNNABLE,
// per spec.md §4.1. No-op for any other state (mirrors mlfq_enqueue's
// ZOMBIE guard, generalized to every non-RUNNABLE state).
func (m *mlfq) enqueue(priority int, p *Process, now int64) {
	priority = m.clamp(priority)

	m.mu.Lock()
	defer m.mu.Unlock()

	p.mu.Lock()
	runnable := p.state == Runnable
	p.mu.Unlock()
	if !runnable {
		return
	}

	m.levels[priority].push(p)
	p.priority = priority
	p.ticksInQueue = 0
	p.entryTime = now
}

func (m *mlfq) dequeue(priority int) *Process {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[priority].pop()
}

// remove is a no-op for the idle task or nil, per spec.md §4.1.
func (m *mlfq) remove(p *Process) {
	if p == nil || p.pid == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[p.priority].removeAt(p)
}
