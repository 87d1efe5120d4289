package detector

import (
	"runtime"
	"sync"
)

// WorkerPool runs independent scoring jobs concurrently. Each job must own
// its inputs; the pool adds no synchronization beyond completion tracking.
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	once     sync.Once
}

// NewWorkerPool creates a pool with the specified number of workers.
// workers <= 0 uses the CPU count.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start launches the workers. Safe to call more than once.
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		job()
	}
}

// Submit queues a single job.
func (wp *WorkerPool) Submit(job func()) {
	wp.jobQueue <- job
}

// RunBatch submits all jobs and blocks until every one has finished.
func (wp *WorkerPool) RunBatch(jobs []func()) {
	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for _, job := range jobs {
		job := job
		wp.Submit(func() {
			defer wg.Done()
			job()
		})
	}
	wg.Wait()
}

// Close shuts the pool down. Submitting after Close panics.
func (wp *WorkerPool) Close() {
	close(wp.jobQueue)
}
