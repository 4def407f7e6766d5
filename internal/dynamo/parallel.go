package dynamo

import (
	"runtime"
	"sync"
)

// ParallelFor calls fn(i) for every i in [0, n) on up to workers goroutines
// and returns when all calls have finished. workers <= 0 uses one per CPU.
func ParallelFor(n, workers int, fn func(i int)) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, n)
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	next := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range next {
				fn(i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		next <- i
	}
	close(next)
	wg.Wait()
}
