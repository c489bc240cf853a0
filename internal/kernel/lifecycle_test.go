package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TableSize = 16
	cfg.TickInterval = time.Millisecond
	cfg.NumCPU = 1
	k := New(zap.NewNop(), cfg, nil)
	k.Boot()
	t.Cleanup(k.Shutdown)
	return k
}

func TestLifecycle_ForkExitWaitReapsChild(t *testing.T) {
	k := newTestKernel(t)
	done := make(chan struct{})

	k.Userinit("init", func(k *Kernel, p *Process) {
		child, err := k.Fork(p, "child", func(k *Kernel, c *Process) {
			k.Exit(c, 7)
		})
		require.NoError(t, err)

		pid, status, err := k.Wait(k.CPUFor(p), p)
		require.NoError(t, err)
		require.Equal(t, child.Pid(), pid)
		require.Equal(t, 7, status)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fork/exit/wait cycle")
	}
}

func TestLifecycle_ForkChildInheritsParentPriority(t *testing.T) {
	k := newTestKernel(t)
	done := make(chan struct{})

	k.Userinit("init", func(k *Kernel, p *Process) {
		p.priority = 3 // simulate a parent that has already been demoted

		child, err := k.Fork(p, "child", func(k *Kernel, c *Process) {})
		require.NoError(t, err)
		require.Equal(t, 3, child.Priority(), "§4.5: child inherits parent's priority")
		require.Equal(t, 0, child.ticksInQueue)

		_, _, err = k.Wait(k.CPUFor(p), p)
		require.NoError(t, err)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fork-inherits-priority check")
	}
}

func TestLifecycle_WaitWithNoChildrenReturnsErrNoSuchProcess(t *testing.T) {
	k := newTestKernel(t)
	done := make(chan struct{})

	k.Userinit("init", func(k *Kernel, p *Process) {
		_, _, err := k.Wait(k.CPUFor(p), p)
		require.ErrorIs(t, err, ErrNoSuchProcess)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for childless Wait to return")
	}
}

func TestLifecycle_SleepWakeupBoostsToPriorityZero(t *testing.T) {
	k := newTestKernel(t)
	done := make(chan struct{})
	chanAddr := new(int)

	k.Userinit("init", func(k *Kernel, p *Process) {
		p.priority = k.q.nlevels() - 1 // simulate a demoted, CPU-bound process
		k.Sleep(k.CPUFor(p), p, chanAddr)
		require.Equal(t, 0, p.Priority(), "§4.5: wakeup re-enqueues at priority 0")
		close(done)
	})

	time.Sleep(20 * time.Millisecond)
	k.Wakeup(chanAddr)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sleep/wakeup cycle")
	}
}

func TestLifecycle_KillSetsAdvisoryFlagAndWakesSleeper(t *testing.T) {
	k := newTestKernel(t)
	started := make(chan int64, 1)
	done := make(chan struct{})
	chanAddr := new(int)

	k.Userinit("init", func(k *Kernel, p *Process) {
		started <- p.Pid()
		k.Sleep(k.CPUFor(p), p, chanAddr)
		require.True(t, p.Killed())
		close(done)
	})

	pid := <-started
	require.NoError(t, k.Kill(pid))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for killed sleeper to resume")
	}
}

func TestLifecycle_KillPreservesCurrentPriorityUnlikeWakeup(t *testing.T) {
	k := newTestKernel(t)
	started := make(chan int64, 1)
	done := make(chan struct{})
	chanAddr := new(int)

	k.Userinit("init", func(k *Kernel, p *Process) {
		p.priority = 3 // simulate a demoted process, sleeping at a low level
		started <- p.Pid()
		k.Sleep(k.CPUFor(p), p, chanAddr)
		require.Equal(t, 3, p.Priority(), "§4.5: kill re-enqueues at current priority, not 0")
		close(done)
	})

	pid := <-started
	require.NoError(t, k.Kill(pid))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for killed sleeper to resume")
	}
}

func TestLifecycle_KillUnknownPidReturnsError(t *testing.T) {
	k := newTestKernel(t)
	require.ErrorIs(t, k.Kill(999), ErrNoSuchProcess)
}

func TestKernel_SnapshotOmitsUnusedSlots(t *testing.T) {
	k := newTestKernel(t)
	done := make(chan struct{})

	k.Userinit("init", func(k *Kernel, p *Process) {
		snap := k.Snapshot()
		for _, row := range snap {
			require.NotEqual(t, "UNUSED", row.State)
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot check")
	}
}
