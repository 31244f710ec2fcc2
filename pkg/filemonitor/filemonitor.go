package filemonitor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is how long events are collected before the callback runs.
const DefaultDebounce = 200 * time.Millisecond

// Callback receives the events collected during one debounce window.
type Callback func(events []fsnotify.Event)

// FileMonitor watches a directory tree and reports changes to files whose
// name matches a pattern. New subdirectories are watched as they appear.
type FileMonitor struct {
	root      string
	pattern   *regexp.Regexp
	blacklist []string
	debounce  time.Duration
	callback  Callback

	watcher   *fsnotify.Watcher
	watchDirs map[string]bool
	mutex     sync.RWMutex

	pending []fsnotify.Event
	timer   *time.Timer
	pendMu  sync.Mutex

	stopCh     chan struct{}
	wg         sync.WaitGroup
	isRunning  bool
	stateMutex sync.RWMutex
}

// New creates a monitor for root. An empty pattern matches every file;
// blacklist entries are substrings of directory paths to skip.
func New(root, pattern string, blacklist []string, callback Callback) (*FileMonitor, error) {
	if callback == nil {
		return nil, errors.New("callback cannot be nil")
	}
	if pattern == "" {
		pattern = ".*"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FileMonitor{
		root:      abs,
		pattern:   re,
		blacklist: append([]string(nil), blacklist...),
		debounce:  DefaultDebounce,
		callback:  callback,
		watchDirs: make(map[string]bool),
	}, nil
}

// SetDebounce changes the debounce window. Zero delivers every event alone.
func (fm *FileMonitor) SetDebounce(d time.Duration) {
	fm.pendMu.Lock()
	defer fm.pendMu.Unlock()
	fm.debounce = d
}

func (fm *FileMonitor) Root() string {
	return fm.root
}

// Match reports whether path is a file the monitor cares about.
func (fm *FileMonitor) Match(path string) bool {
	if fm.blacklisted(filepath.Dir(path)) {
		return false
	}
	return fm.pattern.MatchString(filepath.Base(path))
}

// blacklisted checks dir below the root, so the root itself may live in a
// blacklisted location.
func (fm *FileMonitor) blacklisted(dir string) bool {
	rel := strings.TrimPrefix(dir, fm.root)
	for _, b := range fm.blacklist {
		if strings.Contains(rel, b) {
			return true
		}
	}
	return false
}

func (fm *FileMonitor) Start() error {
	fm.stateMutex.Lock()
	defer fm.stateMutex.Unlock()
	if fm.isRunning {
		return errors.New("file monitor is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	fm.watcher = watcher

	fm.mutex.Lock()
	fm.watchDirs = make(map[string]bool)
	fm.mutex.Unlock()

	if err := fm.addWatchTree(fm.root); err != nil {
		_ = watcher.Close()
		fm.watcher = nil
		return fmt.Errorf("failed to watch %s: %w", fm.root, err)
	}

	fm.stopCh = make(chan struct{})
	fm.isRunning = true

	fm.wg.Add(1)
	go fm.watchLoop(watcher, fm.stopCh)

	log.Debug().Str("root", fm.root).Msg("file monitor started")
	return nil
}

func (fm *FileMonitor) Stop() error {
	fm.stateMutex.Lock()
	if !fm.isRunning {
		fm.stateMutex.Unlock()
		return errors.New("file monitor is not running")
	}
	watcher := fm.watcher
	close(fm.stopCh)
	fm.isRunning = false
	fm.stateMutex.Unlock()

	fm.wg.Wait()

	fm.stateMutex.Lock()
	fm.watcher = nil
	fm.stateMutex.Unlock()

	fm.pendMu.Lock()
	if fm.timer != nil {
		fm.timer.Stop()
		fm.timer = nil
	}
	fm.pending = nil
	fm.pendMu.Unlock()

	if err := watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	log.Debug().Str("root", fm.root).Msg("file monitor stopped")
	return nil
}

func (fm *FileMonitor) IsRunning() bool {
	fm.stateMutex.RLock()
	defer fm.stateMutex.RUnlock()
	return fm.isRunning
}

// addWatchTree watches dir and every directory below it.
func (fm *FileMonitor) addWatchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// the directory may be gone again
			if os.IsNotExist(err) && path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if fm.blacklisted(path) {
			return filepath.SkipDir
		}
		return fm.addWatchDir(path)
	})
}

func (fm *FileMonitor) addWatchDir(dir string) error {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()
	if fm.watchDirs[dir] {
		return nil
	}
	if err := fm.watcher.Add(dir); err != nil {
		return err
	}
	fm.watchDirs[dir] = true
	log.Debug().Str("dir", dir).Msg("watching directory")
	return nil
}

func (fm *FileMonitor) removeWatchDir(dir string) bool {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()
	if !fm.watchDirs[dir] {
		return false
	}
	delete(fm.watchDirs, dir)
	return true
}

func (fm *FileMonitor) watchLoop(watcher *fsnotify.Watcher, stopCh chan struct{}) {
	defer fm.wg.Done()

	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			fm.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("root", fm.root).Msg("file watcher error")
		}
	}
}

func (fm *FileMonitor) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if fm.blacklisted(event.Name) {
				return
			}
			if err := fm.addWatchTree(event.Name); err != nil {
				log.Error().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
			}
			// files created together with the directory produce no events of
			// their own, so the directory is reported as a change
			fm.enqueue(event)
			return
		}
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && fm.removeWatchDir(event.Name) {
		fm.enqueue(event)
		return
	}

	if event.Op == fsnotify.Chmod || !fm.Match(event.Name) {
		return
	}
	fm.enqueue(event)
}

func (fm *FileMonitor) enqueue(event fsnotify.Event) {
	fm.pendMu.Lock()
	defer fm.pendMu.Unlock()

	fm.pending = append(fm.pending, event)
	if fm.debounce <= 0 {
		fm.flushLocked()
		return
	}
	if fm.timer == nil {
		fm.timer = time.AfterFunc(fm.debounce, fm.flush)
		return
	}
	fm.timer.Reset(fm.debounce)
}

func (fm *FileMonitor) flush() {
	fm.pendMu.Lock()
	defer fm.pendMu.Unlock()
	fm.timer = nil
	fm.flushLocked()
}

func (fm *FileMonitor) flushLocked() {
	if len(fm.pending) == 0 {
		return
	}
	events := fm.pending
	fm.pending = nil
	go fm.callback(events)
}
