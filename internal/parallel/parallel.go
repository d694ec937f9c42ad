// Package parallel splits index ranges across CPU cores for batch scoring.
package parallel

import (
	"runtime"
	"sync"
)

// ForRange executes fn over [0, items) split into per-worker chunks when
// items exceeds threshold, and sequentially otherwise. Chunks are disjoint,
// so fn may write to distinct output slots without synchronization.
func ForRange(items, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
