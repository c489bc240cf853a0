package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcess(pid int64) *Process {
	return &Process{pid: pid, state: Runnable}
}

func TestRing_PushPopFIFO(t *testing.T) {
	r := newRing(4)
	a, b, c := newTestProcess(1), newTestProcess(2), newTestProcess(3)

	r.push(a)
	r.push(b)
	r.push(c)

	assert.Equal(t, a, r.pop())
	assert.Equal(t, b, r.pop())
	assert.Equal(t, c, r.pop())
	assert.Nil(t, r.pop())
}

func TestRing_PushOverflowPanics(t *testing.T) {
	r := newRing(1)
	r.push(newTestProcess(1))
	assert.Panics(t, func() { r.push(newTestProcess(2)) })
}

func TestRing_RemoveAtMiddleCompactsWithoutCorruption(t *testing.T) {
	r := newRing(4)
	a, b, c := newTestProcess(1), newTestProcess(2), newTestProcess(3)
	r.push(a)
	r.push(b)
	r.push(c)

	r.removeAt(b)

	require.Equal(t, 2, r.count)
	assert.Equal(t, a, r.pop())
	assert.Equal(t, c, r.pop())
	assert.Nil(t, r.pop())
}

func TestRing_RemoveAtThenPushReusesSlot(t *testing.T) {
	r := newRing(2)
	a, b := newTestProcess(1), newTestProcess(2)
	r.push(a)
	r.push(b)

	r.removeAt(a)
	r.push(newTestProcess(3))

	assert.Equal(t, 2, r.count)
	assert.Equal(t, b, r.pop())
	assert.Equal(t, int64(3), r.pop().pid)
}

func TestMLFQ_EnqueueOnlyAcceptsRunnable(t *testing.T) {
	m := newMLFQ(nil, 5, 8, []int{1, 2, 4, 8, 16})
	p := newTestProcess(1)
	p.state = Zombie

	m.enqueue(2, p, 0)

	assert.Nil(t, m.dequeue(2))
}

func TestMLFQ_EnqueueSetsPriorityAndResetsAccounting(t *testing.T) {
	m := newMLFQ(nil, 5, 8, []int{1, 2, 4, 8, 16})
	p := newTestProcess(1)
	p.ticksInQueue = 7

	m.enqueue(3, p, 42)

	assert.Equal(t, 3, p.priority)
	assert.Equal(t, 0, p.ticksInQueue)
	assert.Equal(t, int64(42), p.entryTime)
}

func TestMLFQ_ClampKeepsPriorityInBounds(t *testing.T) {
	m := newMLFQ(nil, 5, 8, []int{1, 2, 4, 8, 16})
	assert.Equal(t, 0, m.clamp(-1))
	assert.Equal(t, 4, m.clamp(4))
	assert.Equal(t, 4, m.clamp(99))
}

func TestMLFQ_RemoveIsNoopForIdle(t *testing.T) {
	m := newMLFQ(nil, 5, 8, []int{1, 2, 4, 8, 16})
	idle := newTestProcess(0)
	assert.NotPanics(t, func() { m.remove(idle) })
	assert.NotPanics(t, func() { m.remove(nil) })
}

func TestMLFQ_DequeuePreservesFIFOOrderWithinLevel(t *testing.T) {
	m := newMLFQ(nil, 5, 8, []int{1, 2, 4, 8, 16})
	a, b := newTestProcess(1), newTestProcess(2)

	m.enqueue(1, a, 0)
	m.enqueue(1, b, 0)

	assert.Equal(t, a, m.dequeue(1))
	assert.Equal(t, b, m.dequeue(1))
}
