// internal/watcher/notifier.go
// Provides the fsnotify-based Watcher.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/erilali/devserver/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// Notifier uses OS file notifications instead of polling. It watches the
// parent directory of every file so that editors replacing a file through
// rename are still seen, and confirms each event with a modification time
// comparison.
type Notifier struct {
	fw     *fsnotify.Watcher
	logger *logger.Logger

	last map[string]time.Time // keyed by cleaned absolute path
	dirs map[string]bool

	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// NewNotifier creates an fsnotify backed watcher for files.
func NewNotifier(files []string, logger *logger.Logger) (*Notifier, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	n := &Notifier{
		fw:     fw,
		logger: logger,
		last:   make(map[string]time.Time, len(files)),
		dirs:   make(map[string]bool),
		done:   make(chan struct{}),
	}
	for _, f := range files {
		f = filepath.Clean(f)
		n.last[f] = time.Time{}
		n.dirs[filepath.Dir(f)] = true
	}
	return n, nil
}

// Start registers the parent directories and begins dispatching events.
func (n *Notifier) Start(onChange func(path string)) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started || n.stopped {
		return nil
	}

	for file := range n.last {
		if t, ok := modTime(file); ok {
			n.last[file] = t
		} else {
			n.logger.Warnf("Watched file %s does not exist yet", file)
		}
	}
	for dir := range n.dirs {
		if err := n.fw.Add(dir); err != nil {
			return err
		}
	}
	n.started = true

	n.wg.Add(1)
	go n.loop(onChange)
	return nil
}

func (n *Notifier) loop(onChange func(path string)) {
	defer n.wg.Done()
	for {
		select {
		case event, ok := <-n.fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Chmod) {
				continue
			}
			file := filepath.Clean(event.Name)
			last, watched := n.last[file]
			if !watched {
				continue
			}
			current, ok := modTime(file)
			if !ok || current.Equal(last) {
				continue
			}
			n.last[file] = current
			onChange(file)

		case err, ok := <-n.fw.Errors:
			if !ok {
				return
			}
			n.logger.Warnf("File watcher error: %v", err)

		case <-n.done:
			return
		}
	}
}

// Stop closes the OS watch and waits for the dispatch goroutine.
func (n *Notifier) Stop() error {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return nil
	}
	n.stopped = true
	close(n.done)
	n.mu.Unlock()

	n.wg.Wait()
	return n.fw.Close()
}
