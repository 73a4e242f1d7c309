// Package parallel provides parallel execution helpers.
package parallel

import (
	"runtime"
	"sync"
)

// NumWorkers returns the default number of workers for parallel operations.
func NumWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// ParallelChunks splits the index range [0, n) into one contiguous chunk per
// worker and runs fn(worker, start, end) for each non-empty chunk in its own
// goroutine. The worker index lets callers keep per-worker scratch space and
// partial sums that are reduced after ParallelChunks returns.
//
// With workers <= 1 the single chunk runs on the calling goroutine, giving a
// strictly sequential evaluation order.
func ParallelChunks(n, workers int, fn func(worker, start, end int)) {
	if n <= 0 {
		return
	}
	if workers <= 1 {
		fn(0, 0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(w, s, e int) {
			defer wg.Done()
			fn(w, s, e)
		}(w, start, end)
	}

	wg.Wait()
}
