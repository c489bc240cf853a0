// Package workload provides kernel.Body implementations used to exercise
// the scheduler: CPU-bound, I/O-bound, and mixed processes, plus the
// fork-bomb, priority-inversion, and aging scenarios that spec.md's
// testable properties describe in prose (§8). Each is grounded on the
// corresponding scenario function in the original xv6 test programs
// (user/mytest.c, user/finaltest.c) — translated from C loops and
// sleep(ticks) calls into Go closures over kernel.Kernel's Sleep/Yield/
// Fork/Wait/Exit primitives, not transliterated line for line.
package workload

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/haldane/mlfqkernel/internal/kernel"
)

// spin burns one unit of simulated CPU work and checks the cooperative
// preemption safepoint, standing in for the reference source's tight
// `for(volatile int i...)` busy loops (user/finaltest.c's cpu_intensive).
func spin(k *kernel.Kernel, cpu *kernel.CPU, p *kernel.Process, units int) {
	for i := 0; i < units; i++ {
		k.CheckPreempt(cpu, p)
		if p.Killed() {
			return
		}
	}
}

// CPUIntensive returns a Body that busy-loops for units iterations,
// checking for preemption and kill requests throughout — the long-running
// low-priority tenant that spec.md's demotion and aging scenarios exercise
// (grounded on finaltest.c's cpu_intensive).
func CPUIntensive(log *zap.Logger, units int) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Process) {
		log := log.Named("workload").With(zap.Int64("pid", p.Pid()), zap.String("kind", "cpu"))
		log.Info("started")
		cpu := cpuOf(k, p)
		spin(k, cpu, p, units)
		log.Info("finished", zap.Bool("killed", p.Killed()))
	}
}

// IOIntensive returns a Body that alternates brief work with sleeping on
// its own address as the wait channel, standing in for blocking I/O
// (grounded on finaltest.c's io_intensive, whose sleep(5) calls block on
// the tick count in the original — here represented abstractly as a
// process-private channel woken after a wall-clock delay).
func IOIntensive(log *zap.Logger, rounds int, ioDelay time.Duration) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Process) {
		log := log.Named("workload").With(zap.Int64("pid", p.Pid()), zap.String("kind", "io"))
		log.Info("started")
		cpu := cpuOf(k, p)
		for i := 0; i < rounds && !p.Killed(); i++ {
			go func() { time.Sleep(ioDelay); k.Wakeup(p) }()
			k.Sleep(cpu, p, p)
			log.Info("io round complete", zap.Int("round", i))
		}
		log.Info("finished", zap.Bool("killed", p.Killed()))
	}
}

// MixedProcess alternates a short compute burst with a sleep, standing in
// for finaltest.c's mixed_process.
func MixedProcess(log *zap.Logger, rounds, computeUnits int, ioDelay time.Duration) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Process) {
		log := log.Named("workload").With(zap.Int64("pid", p.Pid()), zap.String("kind", "mixed"))
		log.Info("started")
		cpu := cpuOf(k, p)
		for round := 0; round < rounds && !p.Killed(); round++ {
			spin(k, cpu, p, computeUnits)
			go func() { time.Sleep(ioDelay); k.Wakeup(p) }()
			k.Sleep(cpu, p, p)
			log.Info("round complete", zap.Int("round", round))
		}
		log.Info("finished", zap.Bool("killed", p.Killed()))
	}
}

// ForkBombSimple forks n independent children, each of which forks m
// grandchildren, and waits for all of them — grounded on finaltest.c's
// fork_bomb_simple, which the original caps at 8x2 "to avoid warnings"
// (a recursive unbounded fork bomb isn't something a test harness wants to
// actually run); the same caution applies here.
func ForkBombSimple(log *zap.Logger, n, m int) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Process) {
		log := log.Named("workload").With(zap.Int64("pid", p.Pid()), zap.String("kind", "fork_bomb"))
		log.Info("started", zap.Int("children", n), zap.Int("grandchildren_per_child", m))

		for i := 0; i < n; i++ {
			i := i
			_, err := k.Fork(p, "forkbomb-child", func(k *kernel.Kernel, child *kernel.Process) {
				for j := 0; j < m; j++ {
					_, err := k.Fork(child, "forkbomb-grandchild", func(k *kernel.Kernel, gc *kernel.Process) {
						for step := 0; step < 3; step++ {
							go func() { time.Sleep(time.Millisecond); k.Wakeup(gc) }()
							k.Sleep(cpuOf(k, gc), gc, gc)
						}
					})
					if err != nil {
						log.Warn("grandchild fork failed", zap.Int("child", i), zap.Error(err))
					}
				}
				for j := 0; j < m; j++ {
					if _, _, err := k.Wait(cpuOf(k, child), child); err != nil {
						break
					}
				}
			})
			if err != nil {
				log.Warn("child fork failed", zap.Int("i", i), zap.Error(err))
			}
		}

		for i := 0; i < n; i++ {
			if _, _, err := k.Wait(cpuOf(k, p), p); err != nil {
				break
			}
		}
		log.Info("finished")
	}
}

// PriorityInversionScenario forks a high-priority (I/O-bound) process and
// a low-priority (CPU-bound) process and waits for both, grounded on
// finaltest.c's priority_inversion_test: the high-priority sibling is
// forked first and given a head start so it is already blocked on I/O by
// the time the CPU-bound sibling starts consuming its quantum.
func PriorityInversionScenario(log *zap.Logger, cpuUnits int) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Process) {
		log := log.Named("workload").With(zap.String("kind", "priority_inversion"))

		high, err := k.Fork(p, "high-prio-io", IOIntensive(log, 3, 20*time.Millisecond))
		if err != nil {
			log.Warn("high-priority fork failed", zap.Error(err))
			return
		}

		time.Sleep(5 * time.Millisecond)

		low, err := k.Fork(p, "low-prio-cpu", CPUIntensive(log, cpuUnits))
		if err != nil {
			log.Warn("low-priority fork failed", zap.Error(err))
			return
		}

		k.Wait(cpuOf(k, p), p)
		k.Wait(cpuOf(k, p), p)
		_ = high
		_ = low
		log.Info("finished")
	}
}

// AgingScenario forks a batch of CPU-bound children, which demote to the
// low levels and wait there behind one another, and a batch of short
// I/O-bound children that stay at priority 0, exercising the age-boost
// path (spec.md §4.4) the same way finaltest.c's aging_test does.
func AgingScenario(log *zap.Logger, lowCount, highCount int) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Process) {
		log := log.Named("workload").With(zap.String("kind", "aging"))
		total := lowCount + highCount

		for i := 0; i < lowCount; i++ {
			if _, err := k.Fork(p, "aging-low", CPUIntensive(log, 2_000_000)); err != nil {
				log.Warn("low-priority fork failed", zap.Error(err))
			}
		}
		for i := 0; i < highCount; i++ {
			if _, err := k.Fork(p, "aging-high", IOIntensive(log, 1, 5*time.Millisecond)); err != nil {
				log.Warn("high-priority fork failed", zap.Error(err))
			}
		}

		for i := 0; i < total; i++ {
			if _, _, err := k.Wait(cpuOf(k, p), p); err != nil {
				break
			}
		}
		log.Info("finished")
	}
}

// cpuOf finds the CPU currently running p, for workload bodies that don't
// otherwise have one in hand (they are invoked as a Body, not given a CPU
// argument directly).
func cpuOf(k *kernel.Kernel, p *kernel.Process) *kernel.CPU {
	return k.CPUFor(p)
}

// RunFleet forks each of the given named scenarios as a child of init,
// concurrently, then reaps all of them. Forking in parallel via an
// errgroup is safe — each call only touches its own fresh descriptor and
// the parent's address space/file table under its own lock — but the
// reaping loop runs serially on the caller's own goroutine: Wait blocks
// "the calling process", and init has exactly one goroutine, so only it
// may ever call Wait on its own behalf.
func RunFleet(k *kernel.Kernel, init *kernel.Process, scenarios map[string]kernel.Body) error {
	var g errgroup.Group
	for name, body := range scenarios {
		name, body := name, body
		g.Go(func() error {
			_, err := k.Fork(init, name, body)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var firstErr error
	for i := 0; i < len(scenarios); i++ {
		if _, _, err := k.Wait(cpuOf(k, init), init); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
