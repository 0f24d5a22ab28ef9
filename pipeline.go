package apeiron

import "sync"

// task runs fn over data split into workersCount contiguous chunks
func task[T any](workersCount int, data []T, fn func(data T)) {
	taskRange(workersCount, len(data), func(start, end int) {
		for i := start; i < end; i++ {
			fn(data[i])
		}
	})
}

// taskRange hands each worker one [start, end) chunk of n items.
// Workers that need private scratch memory allocate it once per chunk.
func taskRange(workersCount int, n int, fn func(start, end int)) {
	workersCount = max(1, workersCount)
	if n == 0 {
		return
	}
	chunkSize := (n + workersCount - 1) / workersCount

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, min(start+chunkSize, n))
	}
	wg.Wait()
}
