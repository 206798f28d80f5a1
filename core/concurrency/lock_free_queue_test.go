package concurrency

import (
	"errors"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-lockfree/api"
	"github.com/momentics/hioload-lockfree/core/backoff"
	"github.com/momentics/hioload-lockfree/pool"
)

func newTestQueue[T any](t *testing.T, opts ...Option) *Queue[T] {
	t.Helper()
	q, err := NewQueue[T](opts...)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	return q
}

// Scenario: one goroutine enqueues 1,2,3; a later one dequeues three times.
func TestQueue_SequentialOrder(t *testing.T) {
	q := newTestQueue[int](t)
	for _, v := range []int{1, 2, 3} {
		if !q.Enqueue(v) {
			t.Fatalf("Enqueue(%d) failed", v)
		}
	}
	done := make(chan []int)
	go func() {
		var got []int
		for i := 0; i < 3; i++ {
			v, ok := q.Dequeue()
			if !ok {
				break
			}
			got = append(got, v)
		}
		done <- got
	}()
	got := <-done
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("dequeued %v, want [1 2 3]", got)
	}
}

func TestQueue_EmptyDoesNotMutate(t *testing.T) {
	q := newTestQueue[string](t)
	before := q.Stats()
	headBefore, tailBefore := q.head.Load(), q.tail.Load()
	for i := 0; i < 3; i++ {
		if v, ok := q.Dequeue(); ok || v != "" {
			t.Fatalf("Dequeue on empty queue = (%q, %v)", v, ok)
		}
	}
	if q.head.Load() != headBefore || q.tail.Load() != tailBefore {
		t.Fatal("empty Dequeue changed head or tail")
	}
	if q.Stats() != before {
		t.Fatalf("empty Dequeue touched the pool: %+v -> %+v", before, q.Stats())
	}
	if !q.Empty() {
		t.Fatal("Empty() = false on empty queue")
	}
	if q.head.Load().Tag() != dummyTag {
		t.Fatalf("dummy tag = %#x", q.head.Load().Tag())
	}
}

func TestQueue_RecyclesNodes(t *testing.T) {
	q := newTestQueue[int](t)
	for round := 0; round < 100; round++ {
		for i := 0; i < 10; i++ {
			q.Enqueue(i)
		}
		for i := 0; i < 10; i++ {
			if v, ok := q.Dequeue(); !ok || v != i {
				t.Fatalf("round %d: got (%d, %v), want %d", round, v, ok, i)
			}
		}
	}
	st := q.Stats()
	// 10 elements in flight plus the dummy
	if st.Carved != 11 {
		t.Fatalf("Carved = %d, want 11", st.Carved)
	}
	if st.InUse != 1 {
		t.Fatalf("InUse = %d, want 1 (the dummy)", st.InUse)
	}
}

func TestQueue_MatchesSequentialModel(t *testing.T) {
	q := newTestQueue[int](t, WithPoolOptions(pool.WithChunkSize(8)))
	model := queue.New()
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 20000; i++ {
		if rnd.Intn(3) < 2 {
			q.Enqueue(i)
			model.Add(i)
			continue
		}
		v, ok := q.Dequeue()
		if model.Length() == 0 {
			if ok {
				t.Fatalf("op %d: dequeued %d from a queue the model says is empty", i, v)
			}
			continue
		}
		want := model.Remove().(int)
		if !ok || v != want {
			t.Fatalf("op %d: got (%d, %v), want %d", i, v, ok, want)
		}
	}
	if q.Empty() != (model.Length() == 0) {
		t.Fatalf("Empty() = %v with model length %d", q.Empty(), model.Length())
	}
}

func TestQueue_AllocationFailure(t *testing.T) {
	q := newTestQueue[int](t, WithPoolOptions(pool.WithMaxSlots(3)))
	// dummy + 2 elements fill the arena
	if !q.Enqueue(1) || !q.Enqueue(2) {
		t.Fatal("Enqueue failed below the cap")
	}
	if q.Enqueue(3) {
		t.Fatal("Enqueue succeeded past the cap")
	}
	if v, _ := q.Dequeue(); v != 1 {
		t.Fatalf("Dequeue = %d, want 1", v)
	}
	if !q.Enqueue(3) {
		t.Fatal("Enqueue failed after a slot was recycled")
	}
	if got := q.Drain(nil); got != 2 {
		t.Fatalf("Drain = %d, want 2", got)
	}
}

func TestQueue_DummyAllocationFailure(t *testing.T) {
	nodes := NewNodePool[int](pool.WithMaxSlots(1))
	if _, err := nodes.Allocate(); err != nil {
		t.Fatal(err)
	}
	_, err := NewQueueOn(nodes)
	if !errors.Is(err, api.ErrResourceExhausted) {
		t.Fatalf("NewQueueOn err = %v, want ErrResourceExhausted", err)
	}
	if _, err := NewQueueOn[int](nil); !errors.Is(err, ErrNilPool) {
		t.Fatalf("nil pool err = %v", err)
	}
}

func TestQueue_Close(t *testing.T) {
	q := newTestQueue[*int](t)
	for i := 0; i < 5; i++ {
		v := i
		q.Enqueue(&v)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	st := q.Stats()
	if st.InUse != 0 || st.Free != st.Carved {
		t.Fatalf("Close leaked nodes: %+v", st)
	}
	if q.Enqueue(nil) {
		t.Fatal("Enqueue succeeded on a closed queue")
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("Dequeue succeeded on a closed queue")
	}
	if !q.Empty() {
		t.Fatal("closed queue not empty")
	}
	if err := q.Close(); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("second Close err = %v", err)
	}
	if q.Stats().InUse != 0 {
		t.Fatal("rejected Enqueue leaked its node")
	}
}

func TestQueue_MPMCConservationAndProducerOrder(t *testing.T) {
	for _, p := range []backoff.Policy{backoff.Eager, backoff.SpinYield, backoff.Exponential} {
		t.Run(p.String(), func(t *testing.T) {
			q := newTestQueue[uint64](t, WithBackoff(backoff.Config{Policy: p}))
			const producers, consumers, perProducer = 4, 4, 20000
			const total = producers * perProducer

			var wg sync.WaitGroup
			for pid := 0; pid < producers; pid++ {
				wg.Add(1)
				go func(pid int) {
					defer wg.Done()
					for i := 0; i < perProducer; i++ {
						// producer id in the high bits, sequence in the low bits
						if !q.Enqueue(uint64(pid)<<32 | uint64(i)) {
							t.Errorf("Enqueue failed")
							return
						}
					}
				}(pid)
			}

			var received atomic.Int64
			results := make([][]uint64, consumers)
			var cwg sync.WaitGroup
			for c := 0; c < consumers; c++ {
				cwg.Add(1)
				go func(c int) {
					defer cwg.Done()
					for received.Load() < total {
						v, ok := q.Dequeue()
						if !ok {
							runtime.Gosched()
							continue
						}
						results[c] = append(results[c], v)
						received.Add(1)
					}
				}(c)
			}

			wg.Wait()
			done := make(chan struct{})
			go func() {
				cwg.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(10 * time.Second):
				t.Fatalf("timeout: received %d/%d", received.Load(), total)
			}

			seen := make(map[uint64]bool, total)
			for c, vals := range results {
				last := make(map[uint64]int64)
				for _, v := range vals {
					if seen[v] {
						t.Fatalf("value %#x dequeued twice", v)
					}
					seen[v] = true
					pid, seq := v>>32, int64(v&0xffffffff)
					if prev, ok := last[pid]; ok && seq <= prev {
						t.Fatalf("consumer %d saw producer %d out of order: %d after %d", c, pid, seq, prev)
					}
					last[pid] = seq
				}
			}
			if len(seen) != total {
				t.Fatalf("dequeued %d distinct values, want %d", len(seen), total)
			}
			if _, ok := q.Dequeue(); ok {
				t.Fatal("queue not empty after all values were consumed")
			}
			if st := q.Stats(); st.InUse != 1 {
				t.Fatalf("InUse = %d after draining, want 1", st.InUse)
			}
		})
	}
}

func TestQueue_ConcurrentIntegersExactlyOnce(t *testing.T) {
	q := newTestQueue[int](t)
	const n, producers = 40000, 8
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := p; i < n; i += producers {
				q.Enqueue(i)
			}
		}(p)
	}
	wg.Wait()

	got := make([]int, 0, n)
	for i := 0; i < n; i++ {
		v, ok := q.Dequeue()
		if !ok {
			t.Fatalf("queue empty after %d of %d dequeues", i, n)
		}
		got = append(got, v)
	}
	sort.Ints(got)
	for i, v := range got {
		if v != i {
			t.Fatalf("sorted[%d] = %d", i, v)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("extra element after N dequeues")
	}
}

func TestQueue_Probes(t *testing.T) {
	q := newTestQueue[int](t)
	q.Enqueue(1)
	probes := q.Probes()
	if probes["empty"]().(bool) {
		t.Fatal("empty probe reports true")
	}
	if st := probes["pool"]().(api.PoolStats); st.InUse != 2 {
		t.Fatalf("pool probe InUse = %d, want 2", st.InUse)
	}
}

func TestQueue_DummyPayloadReleasedOnNextDequeue(t *testing.T) {
	q := newTestQueue[*int](t)
	a, b := 1, 2
	q.Enqueue(&a)
	q.Enqueue(&b)

	if v, ok := q.Dequeue(); !ok || v != &a {
		t.Fatalf("Dequeue = (%v, %v), want &a", v, ok)
	}
	// The node that held &a is now the dummy and still carries it.
	first := slot(q.head.Load())
	if q.node(first).value != &a {
		t.Fatal("dummy lost its payload early")
	}
	if v, ok := q.Dequeue(); !ok || v != &b {
		t.Fatalf("Dequeue = (%v, %v), want &b", v, ok)
	}
	if q.node(first).value != nil {
		t.Fatal("freed dummy still references its payload")
	}
	second := slot(q.head.Load())
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if q.node(second).value != nil {
		t.Fatal("Close left the payload in the released dummy")
	}
}
