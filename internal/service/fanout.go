package service

import (
	"context"
	"sort"
	"sync"

	"github.com/hakplan/roster-api/internal/models"
)

// fanOut applies fn to every id with at most concurrency in-flight
// workers. Failures never abort the batch; every remaining id is still
// attempted and the report names the ones that did not complete.
func fanOut(ctx context.Context, ids []string, concurrency int, fn func(context.Context, string) error) models.FanOutReport {
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu     sync.Mutex
		report models.FanOutReport
	)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			err := fn(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.FailedIDs = append(report.FailedIDs, id)
				return
			}
			report.Updated++
		}(id)
	}
	wg.Wait()

	sort.Strings(report.FailedIDs)
	return report
}
