// Package workerpool provides a generic fixed-size worker pool.
package workerpool

import (
	"runtime"
	"sync"
)

// Pool distributes jobs across a fixed number of workers and collects results.
type Pool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// New creates a pool with numWorkers workers.
// If numWorkers is 0 or negative, it defaults to GOMAXPROCS.
// If numJobs is less than numWorkers, the pool is sized to match numJobs.
func New[Job any, Result any](numWorkers, numJobs int) *Pool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}

	return &Pool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, max(numJobs, 0)),
		results:    make(chan Result, max(numJobs, 0)),
	}
}

// Workers returns the number of workers the pool runs.
func (p *Pool[Job, Result]) Workers() int {
	return p.numWorkers
}

// StartEach calls newWorker once per worker goroutine and runs the returned
// function for each job that worker receives. Use it when every worker needs
// its own state.
func (p *Pool[Job, Result]) StartEach(newWorker func() func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			fn := newWorker()
			for job := range p.jobs {
				p.results <- fn(job)
			}
		}()
	}
}

// Submit adds a job to the pool's job queue.
func (p *Pool[Job, Result]) Submit(job Job) {
	p.jobs <- job
}

// Close closes the job channel. The results channel is closed once every
// worker has finished.
func (p *Pool[Job, Result]) Close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Results returns the results channel for collecting worker outputs.
func (p *Pool[Job, Result]) Results() <-chan Result {
	return p.results
}

type indexed[T any] struct {
	i int
	v T
}

// Map applies a per-worker function to every input and returns the outputs in
// input order. newWorker is called once for each worker goroutine.
func Map[In any, Out any](numWorkers int, inputs []In, newWorker func() func(In) Out) []Out {
	out := make([]Out, len(inputs))
	if len(inputs) == 0 {
		return out
	}

	pool := New[indexed[In], indexed[Out]](numWorkers, len(inputs))
	pool.StartEach(func() func(indexed[In]) indexed[Out] {
		fn := newWorker()
		return func(job indexed[In]) indexed[Out] {
			return indexed[Out]{i: job.i, v: fn(job.v)}
		}
	})
	for i, in := range inputs {
		pool.Submit(indexed[In]{i: i, v: in})
	}
	pool.Close()

	for r := range pool.Results() {
		out[r.i] = r.v
	}
	return out
}
