package loader

import (
	"container/heap"
	"log/slog"
	"runtime"
	"sync"
)

// task is a unit of pending work ordered by priority, then submission order.
type task struct {
	priority float64
	seq      uint64
	index    int // position in the queue, -1 when not queued
	run      func()
	drop     func()
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }
func (q taskQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}
func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}
func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// Scheduler runs pipeline work on a fixed number of workers, highest priority first.
type Scheduler struct {
	logger *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  taskQueue
	seq    uint64
	closed bool
	wg     sync.WaitGroup
}

type schedulerConfig struct {
	Workers int
	Logger  *slog.Logger
}

type SchedulerOption func(*schedulerConfig)

// WithWorkers sets the number of workers; the default is GOMAXPROCS.
func WithWorkers(n int) SchedulerOption {
	return func(c *schedulerConfig) { c.Workers = n }
}

func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(c *schedulerConfig) { c.Logger = logger }
}

func NewScheduler(opts ...SchedulerOption) *Scheduler {
	config := schedulerConfig{
		Workers: runtime.GOMAXPROCS(0),
		Logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}
	config.Workers = max(config.Workers, 1)

	s := &Scheduler{logger: config.Logger}
	s.cond = sync.NewCond(&s.mu)
	s.wg.Add(config.Workers)
	for range config.Workers {
		go s.worker()
	}
	return s
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		t := heap.Pop(&s.queue).(*task)
		s.mu.Unlock()

		t.run()
	}
}

func (s *Scheduler) submit(t *task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	s.seq++
	t.seq = s.seq
	heap.Push(&s.queue, t)
	s.cond.Signal()
	return nil
}

// reprioritize changes the priority of t, reordering it if it is still queued.
func (s *Scheduler) reprioritize(t *task, priority float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.priority = priority
	if t.index >= 0 {
		heap.Fix(&s.queue, t.index)
	}
}

// remove drops t from the queue. It returns false if t already started or was never queued.
func (s *Scheduler) remove(t *task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&s.queue, t.index)
	return true
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close stops the workers after their current task and drops all queued tasks.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.queue
	s.queue = nil
	for _, t := range pending {
		t.index = -1
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	if len(pending) > 0 {
		s.logger.Debug("tilekit: scheduler closed", "dropped", len(pending))
	}
	for _, t := range pending {
		if t.drop != nil {
			t.drop()
		}
	}
	s.wg.Wait()
}
