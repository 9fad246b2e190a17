package dapsync

import "sync"

// Group runs a set of tasks concurrently, awaits all of them, and
// surfaces the first error encountered (by task index, for
// determinism).
type Group struct {
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// Run executes tasks concurrently and blocks until all complete,
// returning the error from the lowest-indexed task that failed, or
// nil if all succeeded.
func Run(tasks []func() error) error {
	if len(tasks) == 0 {
		return nil
	}
	g := &Group{errs: make([]error, len(tasks))}
	g.wg.Add(len(tasks))
	for i, task := range tasks {
		i, task := i, task
		Go(func() {
			defer g.wg.Done()
			if err := task(); err != nil {
				g.mu.Lock()
				g.errs[i] = err
				g.mu.Unlock()
			}
		})
	}
	g.wg.Wait()

	for _, err := range g.errs {
		if err != nil {
			return err
		}
	}
	return nil
}
