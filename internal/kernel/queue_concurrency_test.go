package kernel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMLFQ_ConcurrentEnqueueDequeue hammers a single mlfq from many
// goroutines at once — meant to be run with -race. Each goroutine enqueues
// its own process onto a level and immediately races every other goroutine
// to dequeue from that same level, so the ring's front/rear/count
// bookkeeping is exercised under real concurrent mutation rather than the
// single-goroutine calls every other queue test uses.
func TestMLFQ_ConcurrentEnqueueDequeue(t *testing.T) {
	const levels = 5
	const producers = 16
	const perProducer = 100
	capacity := producers * perProducer

	m := newMLFQ(nil, levels, capacity, []int{1, 2, 4, 8, 16})

	var wg sync.WaitGroup
	var dequeuedCount int64
	var mu sync.Mutex

	for g := 0; g < producers; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				p := &Process{pid: int64(g*perProducer + i), state: Runnable}
				level := (g + i) % levels
				m.enqueue(level, p, int64(i))

				for attempts := 0; attempts < perProducer*producers*10; attempts++ {
					if got := m.dequeue(level); got != nil {
						mu.Lock()
						dequeuedCount++
						mu.Unlock()
						break
					}
				}
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(producers*perProducer), dequeuedCount,
		"every enqueued process must be dequeued exactly once, with no loss or duplication under concurrent access")
}

// TestMLFQ_ConcurrentEnqueueRemove exercises removeAt concurrently with
// enqueue, the path the aging monitor and Kill/Yield race against in
// production. Each goroutine owns a disjoint process and only ever removes
// its own, so a clean run under -race demonstrates the mlfq lock actually
// serializes ring mutation rather than merely looking like it does.
func TestMLFQ_ConcurrentEnqueueRemove(t *testing.T) {
	const levels = 5
	const workers = 16
	const rounds = 100
	capacity := workers

	m := newMLFQ(nil, levels, capacity, []int{1, 2, 4, 8, 16})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &Process{pid: int64(w), state: Runnable}
			for r := 0; r < rounds; r++ {
				level := (w + r) % levels
				m.enqueue(level, p, int64(r))
				m.remove(p)
			}
		}()
	}
	wg.Wait()

	for lvl := 0; lvl < levels; lvl++ {
		require.Equal(t, 0, m.levels[lvl].count, "every removed process must leave its ring empty behind it")
	}
}
