package player

import (
	"sync"
	"time"
)

// avSyncInterval is how many latency samples accumulate between writes of
// the corrective offset to the backend, to avoid needless pipeline churn.
const avSyncInterval = 128

// avSync keeps a running average of measured presentation latency (frame
// decode-arrival to actual presentation) and periodically feeds it back
// to the backend's audio pipeline as a negative offset.
type avSync struct {
	mu       sync.Mutex
	count    int
	avg      time.Duration
	interval int
	apply    func(offset time.Duration)
}

func newAVSync(interval int, apply func(time.Duration)) *avSync {
	if interval <= 0 {
		interval = avSyncInterval
	}
	return &avSync{interval: interval, apply: apply}
}

// Observe folds one latency sample into the running average. Every
// interval-th sample the average is written back as a negative AV offset.
func (a *avSync) Observe(latency time.Duration) {
	a.mu.Lock()
	a.count++
	a.avg += (latency - a.avg) / time.Duration(a.count)
	flush := a.count%a.interval == 0
	offset := -a.avg
	a.mu.Unlock()

	if flush && a.apply != nil {
		a.apply(offset)
	}
}

// Reset discards accumulated samples. Called after seeks, when buffered
// latency history no longer reflects the stream.
func (a *avSync) Reset() {
	a.mu.Lock()
	a.count = 0
	a.avg = 0
	a.mu.Unlock()
}

// Average returns the current latency estimate.
func (a *avSync) Average() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.avg
}
