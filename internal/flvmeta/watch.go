package flvmeta

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultQuietPeriod = 2 * time.Second

type WatchOptions struct {
	// Quiet is how long a file must go without writes before it is updated.
	Quiet   time.Duration
	Options Options
	// OnUpdate, if set, is called after every attempted update.
	OnUpdate func(path string, res Result, err error)
}

// Watcher updates .flv files in a directory in place once they stop changing.
type Watcher struct {
	fs   *fsnotify.Watcher
	dir  string
	opts WatchOptions

	mu      sync.Mutex
	pending map[string]time.Time
	// done remembers the mod time each file had after we rewrote it, so the
	// events caused by our own rename are ignored.
	done map[string]time.Time
}

func NewWatcher(dir string, opts WatchOptions) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, &os.PathError{Op: "watch", Path: abs, Err: os.ErrInvalid}
	}
	if opts.Quiet <= 0 {
		opts.Quiet = DefaultQuietPeriod
	}
	// Keep a zero Now so each update stamps its own metadatadate.
	now := opts.Options.Now
	opts.Options = normalizeOptions(opts.Options)
	opts.Options.Now = now

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(abs); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		fs:      fsw,
		dir:     abs,
		opts:    opts,
		pending: make(map[string]time.Time),
		done:    make(map[string]time.Time),
	}, nil
}

// Run processes events until ctx is cancelled. Updates run one at a time on
// the calling goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	log := w.opts.Options.Logger
	log.Info("watching directory", "dir", w.dir, "quiet", w.opts.Quiet)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.eventLoop(ctx)
	}()
	defer wg.Wait()

	ticker := time.NewTicker(max(w.opts.Quiet/4, 10*time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			for _, path := range w.stable(now) {
				w.update(path)
			}
		}
	}
}

func watched(path string) bool {
	name := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(name), ".flv") && !strings.HasPrefix(name, ".")
}

func (w *Watcher) eventLoop(ctx context.Context) {
	log := w.opts.Options.Logger
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !watched(event.Name) {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

// stable returns the pending files that have been quiet long enough.
func (w *Watcher) stable(now time.Time) []string {
	threshold := now.Add(-w.opts.Quiet)
	w.mu.Lock()
	defer w.mu.Unlock()
	var ready []string
	for path, last := range w.pending {
		if last.Before(threshold) {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}

func (w *Watcher) update(path string) {
	log := w.opts.Options.Logger
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return
	}
	if mod, ok := w.done[path]; ok && mod.Equal(st.ModTime()) {
		return
	}

	res, err := UpdateFile(path, "", w.opts.Options)
	if err != nil {
		log.Error("update failed", "path", path, "error", err)
	} else if st, serr := os.Stat(path); serr == nil {
		w.done[path] = st.ModTime()
	}
	if w.opts.OnUpdate != nil {
		w.opts.OnUpdate(path, res, err)
	}
}
