package engine

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type BatchResult struct {
	Index    int       `json:"index"`
	Request  Request   `json:"request"`
	Analysis *Analysis `json:"analysis,omitempty"`
	Err      error     `json:"-"`
}

type job struct {
	index int
	req   Request
}

// AnalyzeBatch analyzes fixtures on a bounded worker pool. Results keep input
// order. Cancelling ctx stops dispatch; fixtures already handed to a worker run to
// completion and reach sink, so their picks can be flushed. sink may be nil and
// is called from worker goroutines.
func (e *Engine) AnalyzeBatch(ctx context.Context, reqs []Request, sink func(BatchResult)) []BatchResult {
	results := make([]BatchResult, len(reqs))
	for i, r := range reqs {
		results[i] = BatchResult{Index: i, Request: r}
	}
	if len(reqs) == 0 {
		return results
	}

	workers := min(e.opts.Workers, len(reqs))
	jobs := make(chan job)
	done := make(chan BatchResult, len(reqs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go e.batchWorker(context.WithoutCancel(ctx), jobs, done, sink, &wg)
	}

	dispatched := 0
dispatch:
	for i, r := range reqs {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- job{index: i, req: r}:
			dispatched++
		}
	}
	close(jobs)

	wg.Wait()
	close(done)

	for r := range done {
		results[r.Index] = r
	}
	if dispatched < len(reqs) {
		for i := dispatched; i < len(reqs); i++ {
			results[i].Err = ctx.Err()
		}
		e.logger.WithFields(logrus.Fields{
			"dispatched": dispatched,
			"total":      len(reqs),
		}).Warn("Batch cancelled, remaining fixtures not dispatched")
	}
	return results
}

func (e *Engine) batchWorker(ctx context.Context, jobs <-chan job, done chan<- BatchResult, sink func(BatchResult), wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		a, err := e.Analyze(ctx, j.req)
		r := BatchResult{Index: j.index, Request: j.req, Analysis: a, Err: err}
		if sink != nil {
			sink(r)
		}
		done <- r
	}
}
