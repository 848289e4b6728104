// internal/watcher/watcher.go
// Package watcher detects modification time changes of a fixed list of files.
package watcher

import (
	"fmt"
	"os"
	"time"

	"github.com/erilali/devserver/internal/logger"
)

// Watcher reports changes to a fixed set of files.
type Watcher interface {
	// Start begins watching. onChange is called with the absolute path of a
	// watched file each time its modification time changes. It may be called
	// from any goroutine, and for different files concurrently.
	Start(onChange func(path string)) error

	// Stop ends watching. After Stop returns, no further onChange calls will
	// fire. Safe to call multiple times.
	Stop() error
}

// New builds the watcher for mode: "poll" or "notify".
func New(mode string, files []string, interval time.Duration, logger *logger.Logger) (Watcher, error) {
	switch mode {
	case "poll", "":
		return NewPoller(files, interval, logger), nil
	case "notify":
		return NewNotifier(files, logger)
	default:
		return nil, fmt.Errorf("unknown watch mode %q", mode)
	}
}

// modTime returns the modification time of path. ok is false when the file
// cannot be stat'ed, which never counts as a change.
func modTime(path string) (t time.Time, ok bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
