package batch

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/dtnitsch/textiq/pkg/estimator"
	"github.com/dtnitsch/textiq/pkg/ingest"
	"github.com/dtnitsch/textiq/pkg/preprocess"
	"github.com/dtnitsch/textiq/pkg/store"
)

// run fans the inputs out over a worker pool and returns results in the
// original argument order. A nil database disables run persistence.
func run(ctx context.Context, logger *slog.Logger, inputs []string, workerCount int, mode preprocess.Mode, est *estimator.Estimator, resolver *ingest.Resolver, database *store.DB) []Result {
	if workerCount <= 0 {
		workerCount = 4
	}
	if workerCount > len(inputs) {
		workerCount = len(inputs)
	}

	logger.Info("starting batch estimation", "inputs", len(inputs), "workers", workerCount, "mode", string(mode))

	var wg sync.WaitGroup
	jobs := make(chan Job, len(inputs))
	results := make(chan Result, len(inputs))

	for w := 1; w <= workerCount; w++ {
		wg.Add(1)
		go worker(ctx, w, logger, est, resolver, database, mode, &wg, jobs, results)
	}

	for i, source := range inputs {
		jobs <- Job{Index: i, Source: source}
	}
	close(jobs)

	wg.Wait()
	close(results)
	logger.Info("all batch workers finished")

	allResults := make([]Result, 0, len(inputs))
	for result := range results {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].Index < allResults[j].Index
	})
	return allResults
}

func worker(ctx context.Context, id int, logger *slog.Logger, est *estimator.Estimator, resolver *ingest.Resolver, database *store.DB, mode preprocess.Mode, wg *sync.WaitGroup, jobs <-chan Job, results chan<- Result) {
	defer wg.Done()
	for job := range jobs {
		logger.Info("worker started job", "worker_id", id, "source", job.Source)
		result := Result{Index: job.Index, Source: job.Source}

		in, err := resolver.Resolve(ctx, job.Source)
		if err != nil {
			logger.Error("failed to resolve input", "worker_id", id, "source", job.Source, "error", err)
			result.Err = err
			result.ErrType = "ingest_error"
			results <- result
			continue
		}

		result.Estimate = est.Estimate(ctx, in.Text, mode)

		if database != nil {
			run := store.NewRun(in.Source, in.Text, result.Estimate)
			if err := database.SaveRun(ctx, run); err != nil {
				logger.Warn("failed to save run", "worker_id", id, "source", job.Source, "error", err)
			} else {
				result.RunID = run.ID
			}
		}

		results <- result
		logger.Info("worker finished job", "worker_id", id, "source", job.Source)
	}
}
