// Package watch refreshes cached payloads when their workbook directories
// change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"nyassess/domain/assessment"
	"nyassess/internal"

	"github.com/fsnotify/fsnotify"
)

// Target is one watched workbook directory.
type Target struct {
	Subject assessment.Subject
	Level   assessment.Level
	Dir     string
}

// WarmFunc reloads the payload behind a target.
type WarmFunc func(ctx context.Context, subject assessment.Subject, level assessment.Level) error

// Watcher batches filesystem events per directory and calls WarmFunc once
// per changed directory after the debounce window closes without new events.
// In-place edits to a workbook do not bump the directory's mtime, so this is
// what picks them up.
type Watcher struct {
	watcher  *fsnotify.Watcher
	targets  map[string]Target
	warm     WarmFunc
	debounce time.Duration
	logger   *internal.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// New watches every target directory that exists. Missing directories are
// logged and ignored; they are not created.
func New(targets []Target, warm WarmFunc, debounce time.Duration, logger *internal.Logger) (*Watcher, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		targets:  make(map[string]Target),
		warm:     warm,
		debounce: debounce,
		logger:   logger,
		done:     make(chan struct{}),
	}
	for _, t := range targets {
		dir := filepath.Clean(t.Dir)
		if err := fw.Add(dir); err != nil {
			logger.Debug("[Watch] not watching %s: %v", dir, err)
			continue
		}
		t.Dir = dir
		w.targets[dir] = t
		logger.Info("[Watch] watching %s", dir)
	}
	return w, nil
}

// Watching returns the watched directories in lexical order.
func (w *Watcher) Watching() []string {
	dirs := make([]string, 0, len(w.targets))
	for d := range w.targets {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Run processes events until ctx ends or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	pending := make(map[string]Target)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			t, ok := w.targetFor(ev.Name)
			if !ok {
				continue
			}
			pending[t.Dir] = t
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("[Watch] watcher error: %v", err)
		case <-fire:
			fire = nil
			for dir, t := range pending {
				delete(pending, dir)
				w.logger.Info("[Watch] %s changed, reloading %s %s", dir, t.Subject, t.Level)
				if err := w.warm(ctx, t.Subject, t.Level); err != nil {
					w.logger.Error("[Watch] reload of %s failed: %v", dir, err)
				}
			}
		}
	}
}

func (w *Watcher) targetFor(name string) (Target, bool) {
	name = filepath.Clean(name)
	if t, ok := w.targets[name]; ok {
		return t, true
	}
	t, ok := w.targets[filepath.Dir(name)]
	return t, ok
}

// Close stops Run and releases the underlying watcher.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

// Targets lists every subject/level directory as resolved by dir.
func Targets(dir func(assessment.Subject, assessment.Level) string) []Target {
	var out []Target
	for _, s := range assessment.Subjects {
		for _, l := range assessment.Levels {
			out = append(out, Target{
				Subject: s,
				Level:   l,
				Dir:     dir(s, l),
			})
		}
	}
	return out
}
