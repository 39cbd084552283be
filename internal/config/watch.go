package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a loaded Configuration's source file and invokes a
// callback with the freshly reloaded value whenever it changes on disk
// (SPEC_FULL.md: "APEX wires [fsnotify] into internal/config/watch.go... to
// support reloading a rules/enrichments folder without restarting a
// long-lived evaluator process" — a natural extension of §3's "loaded once
// and treated as immutable" to the lifetime of one loaded value, not the
// host process). Stop must be called to release filesystem resources.
type Watcher struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop halts the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		w.cancel()
		<-w.done
	})
}

// Watch wires fsnotify around the Loader's first configured file and
// reloads the Configuration on any write/create/rename/remove/chmod event,
// invoking onChange with the new value. onError receives reload and
// filesystem errors; a failed reload does not replace the last-known-good
// Configuration.
func (l *Loader) Watch(ctx context.Context, onChange func(Configuration), onError func(error)) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("config: watch requires a change callback")
	}
	if len(l.files) == 0 || l.files[0] == "" {
		return nil, fmt.Errorf("config: no configuration file to watch")
	}
	target := l.files[0]

	watchCtx, cancel := context.WithCancel(ctx)
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("config: watch: %w", err)
	}

	resolved, err := filepath.Abs(target)
	if err != nil {
		resolved = target
	}
	resolved = filepath.Clean(resolved)

	if err := fsw.Add(filepath.Dir(resolved)); err != nil {
		if closeErr := fsw.Close(); closeErr != nil && onError != nil {
			onError(fmt.Errorf("config: watch close: %w", closeErr))
		}
		cancel()
		return nil, fmt.Errorf("config: watch add %s: %w", filepath.Dir(resolved), err)
	}

	done := make(chan struct{})
	w := &Watcher{cancel: cancel, done: done}

	go func() {
		defer close(done)
		defer func() {
			if err := fsw.Close(); err != nil && onError != nil {
				onError(fmt.Errorf("config: watch close: %w", err))
			}
		}()

		const debounce = 25 * time.Millisecond
		var timer *time.Timer
		var signal <-chan time.Time
		scheduleReload := func() {
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			signal = timer.C
		}
		reload := func() {
			cfg, err := l.Load(watchCtx)
			if err != nil {
				if onError != nil {
					onError(fmt.Errorf("config: reload: %w", err))
				}
				return
			}
			onChange(cfg)
		}

		for {
			select {
			case <-watchCtx.Done():
				return
			case <-signal:
				signal = nil
				reload()
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != resolved {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
					scheduleReload()
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(fmt.Errorf("config: watch error: %w", err))
				}
			}
		}
	}()

	return w, nil
}
