package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// maxSampleErrors bounds how many item error messages the aggregate carries.
const maxSampleErrors = 5

// ItemResult is the outcome of one work item in a batch run.
type ItemResult struct {
	Key string
	Err error
}

// BatchResult aggregates a whole run.
type BatchResult struct {
	Succeeded    int
	Failed       int
	Items        []ItemResult
	SampleErrors []string
}

// RunBatches processes keys in fixed-size batches. Items within a batch run
// concurrently; batch N+1 never starts before batch N has fully resolved.
// Between batches a fixed delay keeps the run under provider rate limits.
// Each item is isolated: a failure (or panic) is recorded and the run
// continues. The context is only checked at batch boundaries — an in-flight
// batch always runs to completion.
func RunBatches(ctx context.Context, keys []string, batchSize int, delay time.Duration, fn func(ctx context.Context, key string) error) BatchResult {
	if batchSize <= 0 {
		batchSize = 1
	}

	result := BatchResult{Items: make([]ItemResult, 0, len(keys))}

	for start := 0; start < len(keys); start += batchSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				logrus.Warnf("Batch run canceled after %d items", len(result.Items))
				return result
			case <-time.After(delay):
			}
		}

		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for _, key := range batch {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				err := runIsolated(ctx, key, fn)

				mu.Lock()
				defer mu.Unlock()
				result.Items = append(result.Items, ItemResult{Key: key, Err: err})
				if err != nil {
					result.Failed++
					if len(result.SampleErrors) < maxSampleErrors {
						result.SampleErrors = append(result.SampleErrors, fmt.Sprintf("%s: %v", key, err))
					}
				} else {
					result.Succeeded++
				}
			}(key)
		}
		wg.Wait()

		logrus.Debugf("Batch %d-%d done: %d ok, %d failed so far", start, end, result.Succeeded, result.Failed)
	}

	return result
}

// runIsolated invokes fn and converts a panic into an ordinary item error so
// one bad item cannot take down the batch.
func runIsolated(ctx context.Context, key string, fn func(ctx context.Context, key string) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing %s: %v", key, r)
			logrus.Errorf("Recovered panic in batch item %s: %v", key, r)
		}
	}()
	return fn(ctx, key)
}
