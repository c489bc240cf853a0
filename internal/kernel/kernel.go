package kernel

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds the tunables of spec.md: N priority levels with their
// quanta, the aging threshold and period, process-table size, and the
// number of simulated CPUs. Defaults match the literal values spec.md's
// end-to-end scenarios use (§8): N=5, quanta {1,2,4,8,16}, AGE_THRESHOLD=200,
// boosted every 100 ticks.
type Config struct {
	TableSize      int
	Quanta         []int
	AgeThreshold   int64
	AgeBoostPeriod int64
	NumCPU         int
	TickInterval   time.Duration
}

// DefaultConfig returns spec.md's literal constants (§8).
func DefaultConfig() Config {
	return Config{
		TableSize:      64,
		Quanta:         []int{1, 2, 4, 8, 16},
		AgeThreshold:   200,
		AgeBoostPeriod: 100,
		NumCPU:         1,
		TickInterval:   time.Millisecond,
	}
}

// CPU is a simulated processor: at most one process descriptor is RUNNING
// with it as "current" at any instant (§3 invariant 2).
type CPU struct {
	id int

	mu      sync.Mutex
	current *Process

	// back is signalled by relinquish whenever the running process gives
	// up this CPU; schedule blocks on it between dispatches.
	back chan struct{}
}

func (c *CPU) Current() *Process {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *CPU) setCurrent(p *Process) {
	c.mu.Lock()
	c.current = p
	c.mu.Unlock()
}

// Kernel is the single aggregate of §9: "process table, pid counter,
// queues, and idle pointer are process-wide singletons with a defined
// initialization order ... expose these via a single Kernel aggregate
// constructed once at boot." New() performs exactly that order: table
// locks first (allocated with the table), then pid lock, then wait lock,
// then queues, then the idle descriptor, then enqueuing idle.
type Kernel struct {
	log *zap.Logger
	cfg Config

	table *Table
	pids  *pidAllocator

	waitLock sync.Mutex

	q *mlfq

	idle *Process
	init *Process

	cpus []*CPU

	ticks atomic64

	events EventSink

	stop chan struct{}
}

// New constructs the Kernel aggregate and installs the idle task, but does
// not start the clock or spawn any CPU's bootstrap goroutine — call Boot
// for that. Splitting construction from boot lets tests build a Kernel and
// drive it deterministically tick-by-tick without a background ticker.
func New(log *zap.Logger, cfg Config, events EventSink) *Kernel {
	if log == nil {
		log = zap.NewNop()
	}
	if events == nil {
		events = noopSink{}
	}
	if cfg.TableSize <= 0 {
		cfg = DefaultConfig()
	}

	log = log.Named("kernel")
	k := &Kernel{
		log:    log,
		cfg:    cfg,
		table:  newTable(cfg.TableSize),
		pids:   newPIDAllocator(log.Named("pidalloc")),
		q:      newMLFQ(log.Named("mlfq"), len(cfg.Quanta), cfg.TableSize, cfg.Quanta),
		events: events,
		stop:   make(chan struct{}),
	}

	for i := 0; i < cfg.NumCPU; i++ {
		k.cpus = append(k.cpus, &CPU{id: i, back: make(chan struct{})})
	}

	k.initIdle()
	k.log.Info("kernel constructed",
		zap.Int("table_size", cfg.TableSize),
		zap.Int("levels", len(cfg.Quanta)),
		zap.Int("num_cpu", cfg.NumCPU))

	return k
}

// initIdle installs the idle task in table slot 0 with pid 0, as spec.md
// §4.6/§9 require, and enqueues it at the lowest priority so the
// dispatcher's fallback (§4.2 step 4) is always available even before it
// ever becomes necessary.
func (k *Kernel) initIdle() {
	p := k.table.procs[0]
	p.mu.Lock()
	p.pid = 0
	p.name = "idle"
	p.state = Runnable
	p.addr = newAddressSpace()
	p.files = newOpenFiles("/")
	p.mu.Unlock()

	p.priority = k.q.nlevels() - 1
	p.ctx = newContext()
	p.body = idleBody

	k.idle = p
	k.q.enqueue(p.priority, p, k.Ticks())
}

// Ticks returns the monotonic tick counter (uptime() of §6).
func (k *Kernel) Ticks() int64 { return k.ticks.load() }

// Boot starts the background clock and one goroutine per configured CPU,
// each running that CPU's schedule loop for the kernel's lifetime. That
// loop stands in for the per-CPU scheduler context: every process that
// gives up the CPU hands control back to it (see DESIGN.md).
func (k *Kernel) Boot() {
	go k.clockLoop()
	for _, cpu := range k.cpus {
		cpu := cpu
		go k.schedule(cpu)
	}
}

// Shutdown stops the clock. Process goroutines that are blocked on their
// own resume channel are leaked intentionally (matching a real kernel:
// there is no graceful teardown of a scheduler, only a halt).
func (k *Kernel) Shutdown() {
	close(k.stop)
}

// ProcSnapshot is one row of Kernel.Snapshot, the Go analogue of the
// reference source's procdump (proc.c:795), supplemented per SPEC_FULL.md
// §4.
type ProcSnapshot struct {
	Pid      int64
	Name     string
	State    string
	Priority int
}

// Snapshot returns a point-in-time view of every non-UNUSED process, for
// the admin API and for tests asserting invariants in quiescent state
// (spec.md §8).
func (k *Kernel) Snapshot() []ProcSnapshot {
	var out []ProcSnapshot
	k.table.Each(func(p *Process) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.state == Unused {
			return
		}
		out = append(out, ProcSnapshot{
			Pid:      p.pid,
			Name:     p.name,
			State:    p.state.String(),
			Priority: p.priority,
		})
	})
	return out
}

// Lookup finds a live process by pid, for Kill and for the admin API.
func (k *Kernel) Lookup(pid int64) (*Process, bool) {
	var found *Process
	k.table.Each(func(p *Process) {
		p.mu.Lock()
		match := p.state != Unused && p.pid == pid
		p.mu.Unlock()
		if match {
			found = p
		}
	})
	return found, found != nil
}
