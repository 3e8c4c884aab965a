package worker

import (
	"context"
	"fmt"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// PanicResult is recorded for a job that panicked
type PanicResult struct {
	Err error
}

// GetError returns the recovered panic as an error
func (r *PanicResult) GetError() error {
	return r.Err
}

// Pool manages a pool of workers that execute jobs concurrently.
// Results are drained as they arrive, so any number of jobs may be
// submitted before Wait.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	collector  *ResultCollector
	collected  chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	waitOnce   sync.Once
	final      []Result
}

// NewPool creates a new worker pool bound to ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		collector:  NewResultCollector(),
		collected:  make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	go func() {
		defer close(p.collected)
		for result := range p.results {
			p.collector.Add(result)
		}
	}()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := p.execute(job)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// execute runs one job; a panic becomes a PanicResult and never kills the worker
func (p *Pool) execute(job Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &PanicResult{Err: fmt.Errorf("job panicked: %v", r)}
		}
	}()
	return job.Execute(p.ctx)
}

// Submit submits a job to the pool for execution
func (p *Pool) Submit(job Job) {
	if p.ctx.Err() != nil {
		return
	}
	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- job:
	}
}

// Wait waits for all jobs to complete and returns the results in
// completion order
func (p *Pool) Wait() []Result {
	p.waitOnce.Do(func() {
		close(p.jobQueue)
		p.wg.Wait()
		close(p.results)
		<-p.collected
		p.cancelFunc()
		p.final = p.collector.Results()
	})
	return p.final
}

// Shutdown cancels outstanding work and returns what completed
func (p *Pool) Shutdown() []Result {
	p.cancelFunc()
	return p.Wait()
}

// ResultCollector gathers results from concurrent producers
type ResultCollector struct {
	results []Result
	mu      sync.Mutex
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make([]Result, 0),
	}
}

// Add adds a result to the collector (thread-safe)
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns all collected results
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}
