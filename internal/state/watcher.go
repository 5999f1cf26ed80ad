package state

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"steward/pkg/logging"
)

// ChangeOperation describes what happened to a state file.
type ChangeOperation string

const (
	OperationWrite  ChangeOperation = "Write"
	OperationDelete ChangeOperation = "Delete"
)

// ChangeEvent reports an out-of-band modification of a persisted state
// record: someone edited or removed a state file outside a steward command.
// Consumers (the dashboard feed) use it to prompt a fresh check.
type ChangeEvent struct {
	Environment string
	Service     string
	Operation   ChangeOperation
	Timestamp   time.Time
	FilePath    string
}

// Watcher observes an environment's state directory via fsnotify and emits
// debounced ChangeEvents. Rapid successive writes to one file collapse into
// a single event.
type Watcher struct {
	mu sync.Mutex

	store       *Store
	environment string
	debounce    time.Duration

	watcher *fsnotify.Watcher
	pending map[string]*time.Timer
	running bool
}

// NewWatcher creates a watcher for one environment's state directory.
func NewWatcher(store *Store, environment string, debounce time.Duration) *Watcher {
	if debounce == 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		store:       store,
		environment: environment,
		debounce:    debounce,
		pending:     make(map[string]*time.Timer),
	}
}

// Start begins watching and delivers events on changes until ctx is
// cancelled or Stop is called. Starting an already-running watcher is a
// no-op.
func (w *Watcher) Start(ctx context.Context, changes chan<- ChangeEvent) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fsw
	w.running = true
	w.mu.Unlock()

	dir := w.store.Dir(w.environment)
	if err := fsw.Add(dir); err != nil {
		// The directory may not exist until the first start; watch lazily by
		// retrying from the event loop is not worth the machinery, so report
		// and stop.
		w.Stop()
		return err
	}

	go w.processEvents(ctx, changes)

	logging.Info("StateWatcher", "Watching %s for out-of-band state changes", dir)
	return nil
}

// Stop shuts the watcher down. Pending debounce timers are discarded.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
}

func (w *Watcher) processEvents(ctx context.Context, changes chan<- ChangeEvent) {
	w.mu.Lock()
	fsw := w.watcher
	w.mu.Unlock()
	if fsw == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event, changes)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("StateWatcher", "Watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, changes chan<- ChangeEvent) {
	name := filepath.Base(event.Name)
	if !strings.HasSuffix(name, ".yaml") {
		return
	}
	service := strings.TrimSuffix(name, ".yaml")

	var op ChangeOperation
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		op = OperationDelete
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		op = OperationWrite
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	// Debounce per file: editors produce bursts of writes for one save.
	if timer, exists := w.pending[event.Name]; exists {
		timer.Stop()
	}
	path := event.Name
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		running := w.running
		w.mu.Unlock()
		if !running {
			return
		}

		evt := ChangeEvent{
			Environment: w.environment,
			Service:     service,
			Operation:   op,
			Timestamp:   time.Now(),
			FilePath:    path,
		}
		select {
		case changes <- evt:
		default:
			logging.Warn("StateWatcher", "Change channel full, dropping event for %s", service)
		}
	})
}
