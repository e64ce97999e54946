package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"kubeship/pkg/logging"
)

const (
	servicesDir  = "services"
	templatesDir = "templates"
	configFile   = "config.yaml"
)

// DefaultDebounceInterval is used when NewDetector is given zero.
const DefaultDebounceInterval = 500 * time.Millisecond

// Operation is the kind of change seen on disk.
type Operation string

const (
	OperationCreate Operation = "Create"
	OperationUpdate Operation = "Update"
	OperationDelete Operation = "Delete"
)

// Change reports that a service needs reconciling. Global changes (the
// global config or a shared template) affect every service and leave
// Service empty.
type Change struct {
	Service   string
	Global    bool
	Operation Operation
	Path      string
	Timestamp time.Time
}

// Detector watches a configuration directory and emits debounced changes.
//
// fsnotify watches are not recursive, so the root, the services directory,
// every service directory and the templates directory are watched
// individually. Service directories created later are picked up.
type Detector struct {
	mu sync.Mutex

	root             string
	watcher          *fsnotify.Watcher
	debounceInterval time.Duration
	pending          map[string]*debounceEntry
	stopCh           chan struct{}
	running          bool
}

type debounceEntry struct {
	change Change
	timer  *time.Timer
}

// NewDetector creates a detector for the configuration directory root.
func NewDetector(root string, debounceInterval time.Duration) *Detector {
	if debounceInterval == 0 {
		debounceInterval = DefaultDebounceInterval
	}
	return &Detector{
		root:             root,
		debounceInterval: debounceInterval,
		pending:          make(map[string]*debounceEntry),
		stopCh:           make(chan struct{}),
	}
}

// Start begins watching. Changes are sent to changes until ctx is done or
// Stop is called.
func (d *Detector) Start(ctx context.Context, changes chan<- Change) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.watcher = watcher
	d.running = true
	d.stopCh = make(chan struct{})
	d.mu.Unlock()

	if err := d.setupWatches(); err != nil {
		d.Stop()
		return err
	}

	go d.processEvents(ctx, watcher, changes)

	logging.Info("Watcher", "Started watching %s for manifest changes", d.root)
	return nil
}

func (d *Detector) setupWatches() error {
	if err := d.watcher.Add(d.root); err != nil {
		return err
	}

	for _, dir := range []string{servicesDir, templatesDir} {
		path := filepath.Join(d.root, dir)
		if err := d.watcher.Add(path); err != nil {
			logging.Warn("Watcher", "Failed to watch %s: %v", path, err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(d.root, servicesDir))
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.IsDir() {
			addServiceWatch(d.watcher, filepath.Join(d.root, servicesDir, e.Name()))
		}
	}
	return nil
}

func addServiceWatch(w *fsnotify.Watcher, path string) {
	if err := w.Add(path); err != nil {
		logging.Warn("Watcher", "Failed to watch %s: %v", path, err)
		return
	}
	logging.Debug("Watcher", "Watching directory: %s", path)
}

func (d *Detector) processEvents(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- Change) {
	for {
		select {
		case <-ctx.Done():
			d.cleanupPending()
			return

		case <-d.stopCh:
			d.cleanupPending()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			d.handleEvent(watcher, event, changes)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher", err, "Filesystem watcher error")
		}
	}
}

func (d *Detector) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event, changes chan<- Change) {
	// A new service directory needs its own watch; its files arrive as
	// later events.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if filepath.Dir(event.Name) == filepath.Join(d.root, servicesDir) {
				addServiceWatch(watcher, event.Name)
			}
			return
		}
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OperationCreate
	case event.Has(fsnotify.Write):
		op = OperationUpdate
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OperationDelete
	default:
		return
	}

	change, ok := d.classify(event.Name)
	if !ok {
		return
	}
	change.Operation = op
	change.Path = event.Name
	change.Timestamp = time.Now()

	d.debounce(change, changes)
}

// classify maps a path below root to the service it affects.
func (d *Detector) classify(path string) (Change, bool) {
	rel, err := filepath.Rel(d.root, path)
	if err != nil {
		return Change{}, false
	}
	parts := strings.Split(rel, string(filepath.Separator))

	switch {
	case len(parts) == 1 && parts[0] == configFile:
		return Change{Global: true}, true
	case len(parts) == 2 && parts[0] == templatesDir && !isHidden(parts[1]):
		return Change{Global: true}, true
	case len(parts) == 3 && parts[0] == servicesDir:
		if isHidden(parts[2]) {
			return Change{}, false
		}
		return Change{Service: parts[1]}, true
	default:
		return Change{}, false
	}
}

func (d *Detector) debounce(change Change, changes chan<- Change) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := change.Service
	if change.Global {
		key = "*"
	}

	if entry, ok := d.pending[key]; ok {
		entry.timer.Stop()
		change.Operation = mergeOperations(entry.change.Operation, change.Operation)
	}

	timer := time.AfterFunc(d.debounceInterval, func() {
		d.mu.Lock()
		entry, ok := d.pending[key]
		if ok {
			delete(d.pending, key)
		}
		d.mu.Unlock()

		if !ok {
			return
		}
		select {
		case changes <- entry.change:
			logging.Debug("Watcher", "Emitted change: %s %s", entry.change.Operation, key)
		default:
			logging.Warn("Watcher", "Change channel full, dropping change for %s", key)
		}
	})

	d.pending[key] = &debounceEntry{change: change, timer: timer}
}

// mergeOperations folds two operations on the same key into one.
func mergeOperations(old, new Operation) Operation {
	if old == OperationCreate && new != OperationDelete {
		return OperationCreate
	}
	return new
}

func (d *Detector) cleanupPending() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, entry := range d.pending {
		entry.timer.Stop()
	}
	d.pending = make(map[string]*debounceEntry)
}

// Stop stops watching. It is safe to call more than once.
func (d *Detector) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}
	d.running = false
	close(d.stopCh)

	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			logging.Error("Watcher", err, "Error closing filesystem watcher")
		}
		d.watcher = nil
	}

	logging.Info("Watcher", "Stopped watching %s", d.root)
	return nil
}

// isHidden matches dotfiles and editor swap files.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}
