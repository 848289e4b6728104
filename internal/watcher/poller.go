// internal/watcher/poller.go
// Provides the ticker-based Watcher that compares modification times.
package watcher

import (
	"sync"
	"time"

	"github.com/erilali/devserver/internal/logger"
)

// DefaultPollInterval matches the reload latency browsers are used to.
const DefaultPollInterval = 500 * time.Millisecond

// Poller checks each file's modification time on its own ticker.
type Poller struct {
	files    []string
	interval time.Duration
	logger   *logger.Logger

	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// NewPoller creates a poller for files. A non-positive interval means
// DefaultPollInterval.
func NewPoller(files []string, interval time.Duration, logger *logger.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		files:    append([]string(nil), files...),
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches one polling goroutine per file. The modification time seen
// at Start is the baseline; a file missing at Start is reported once it
// shows up.
func (p *Poller) Start(onChange func(path string)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return nil
	}
	p.started = true

	for _, file := range p.files {
		last, ok := modTime(file)
		if !ok {
			p.logger.Warnf("Watched file %s does not exist yet", file)
		}
		p.wg.Add(1)
		go p.poll(file, last, onChange)
	}
	return nil
}

func (p *Poller) poll(file string, last time.Time, onChange func(path string)) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			current, ok := modTime(file)
			if !ok || current.Equal(last) {
				continue
			}
			last = current
			onChange(file)
		case <-p.done:
			return
		}
	}
}

// Stop halts every ticker and waits for the polling goroutines to exit.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}
