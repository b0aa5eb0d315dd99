// Package watch rescans Python sources into a bibliography as they change.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/matsen/r2t2/internal/discover"
	"github.com/matsen/r2t2/internal/docstring"
	"github.com/matsen/r2t2/internal/reference"
	"github.com/matsen/r2t2/internal/storage"
)

// Watcher watches directories and merges docstring references from changed
// files into a bibliography, saving it after every rescan that adds entries.
type Watcher struct {
	roots      []string
	biblio     *reference.Biblio
	biblioPath string
	fsWatcher  *fsnotify.Watcher

	exclude discover.Options

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// Rescans run one at a time.
	scanMu sync.Mutex

	// Callbacks
	onScanDone func(files []string, added int, duration time.Duration)
	onError    func(error)

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounceDelay sets the debounce delay.
func WithDebounceDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithExcludeDirs sets directory base names that are not watched.
func WithExcludeDirs(dirs []string) Option {
	return func(w *Watcher) {
		w.exclude.ExcludeDirs = dirs
	}
}

// WithExcludeGlobs sets file patterns whose changes are ignored, matched the
// same way as during discovery.
func WithExcludeGlobs(globs []string) Option {
	return func(w *Watcher) {
		w.exclude.ExcludeGlobs = globs
	}
}

// WithOnScanDone sets the callback run after each rescan.
func WithOnScanDone(fn func(files []string, added int, duration time.Duration)) Option {
	return func(w *Watcher) {
		w.onScanDone = fn
	}
}

// WithOnError sets the callback for errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a Watcher over roots. biblio is shared with the caller and
// persisted to biblioPath; an empty biblioPath disables saving.
func New(roots []string, biblio *reference.Biblio, biblioPath string, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		roots:         roots,
		biblio:        biblio,
		biblioPath:    biblioPath,
		fsWatcher:     fsWatcher,
		debounceDelay: 500 * time.Millisecond,
		pendingFiles:  make(map[string]struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	for _, root := range roots {
		if err := w.addDirs(root); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("adding directories to watch: %w", err)
		}
	}

	return w, nil
}

// addDirs recursively adds all directories under root to the watcher.
func (w *Watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || slices.Contains(w.exclude.ExcludeDirs, name)
}

// skipFile reports whether changes to path are ignored.
func (w *Watcher) skipFile(path string) bool {
	if filepath.Ext(path) != discover.SourceExt {
		return true
	}
	rel := path
	for _, root := range w.roots {
		if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
			break
		}
	}
	return w.exclude.ExcludesFile(rel, filepath.Base(path))
}

// Start begins watching for changes.
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher. Pending changes are dropped; a rescan already in
// progress finishes (including its save) before Stop returns.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)

		w.pendingMu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.pendingMu.Unlock()

		w.scanMu.Lock()
		w.scanMu.Unlock()

		err = w.fsWatcher.Close()
	})
	return err
}

// eventLoop handles file system events.
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

// handleEvent processes a single file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	// Watch new directories
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.skipDir(filepath.Base(event.Name)) {
				if err := w.addDirs(event.Name); err != nil {
					w.reportError(err)
				}
			}
			return
		}
	}

	if w.skipFile(event.Name) {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[event.Name] = struct{}{}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.flush)
}

// flush rescans the pending files after the debounce delay.
func (w *Watcher) flush() {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}

	w.scanMu.Lock()
	defer w.scanMu.Unlock()

	// Stop may have run while this flush waited for scanMu.
	select {
	case <-w.done:
		return
	default:
	}

	slices.Sort(files)
	w.rescan(files)
}

// Rescan merges docstring references from files into the bibliography and
// saves it if anything was added. Files that cannot be read are reported
// through the error callback and skipped. Returns the number of entries added.
func (w *Watcher) Rescan(files []string) int {
	w.scanMu.Lock()
	defer w.scanMu.Unlock()
	return w.rescan(files)
}

// rescan does the work of Rescan. The caller holds scanMu.
func (w *Watcher) rescan(files []string) int {
	start := time.Now()
	added := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			w.reportError(&docstring.FileError{Path: path, Err: err})
			continue
		}
		added += docstring.AddDocstringReferences(path, string(data), w.biblio)
	}

	if added > 0 && w.biblioPath != "" {
		if err := storage.Save(w.biblioPath, w.biblio); err != nil {
			w.reportError(fmt.Errorf("saving biblio: %w", err))
		}
	}

	if w.onScanDone != nil {
		w.onScanDone(files, added, time.Since(start))
	}
	return added
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}
