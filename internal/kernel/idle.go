package kernel

import "time"

// idleBody is the idle task's program (§4.6): it never exits, never
// blocks on a wait channel, and re-enqueues itself directly rather than
// through the ordinary Sleep/Yield path, since it has nothing to wait for. It simply gives the CPU back immediately whenever chosen,
// which in practice only happens when every other level is empty.
func idleBody(k *Kernel, p *Process) {
	for {
		time.Sleep(time.Microsecond)

		p.mu.Lock()
		p.state = Runnable
		p.mu.Unlock()
		k.q.enqueue(p.priority, p, k.Ticks())

		cpu := k.cpuFor(p)
		k.relinquish(cpu, p, true)
	}
}

// cpuFor finds the CPU currently running p. Idle is the only body that
// needs to look this up reactively (every other voluntary yield path
// already has its CPU in hand from the caller), since idleBody has no
// caller-supplied context.
func (k *Kernel) cpuFor(p *Process) *CPU {
	for _, cpu := range k.cpus {
		if cpu.Current() == p {
			return cpu
		}
	}
	return k.cpus[0]
}

// CPUFor is the exported form of cpuFor, for callers outside the package
// (workload Bodies) that need to find their own CPU to pass to Sleep/
// Yield/Wait without threading it through every call.
func (k *Kernel) CPUFor(p *Process) *CPU {
	return k.cpuFor(p)
}
