package generate

import (
	"sync"
	"time"
)

// startReporting emits the next message from the cyclic list on each tick
// until stopped. The messages are cosmetic: they run on their own clock and
// carry no information about real job progress.
//
// The returned stop function is safe to call more than once and returns
// only after the reporter goroutine has exited, so no callback can be
// observed after stop returns.
func startReporting(interval time.Duration, messages []string, callback ProgressFunc) (stop func()) {
	if callback == nil || len(messages) == 0 {
		return func() {}
	}

	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		next := 0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				callback(messages[next%len(messages)])
				next++
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}
