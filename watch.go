package kura

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SnapshotExt is the file extension recognised by SnapshotWatcher.
const SnapshotExt = ".knx"

const watchDebounce = 100 * time.Millisecond

// SnapshotWatcher reports snapshot files that were written, created, renamed
// or removed in a set of directories. Bursts of changes to one path are
// reported once, after the path has been quiet for 100 ms, so the report
// always follows the last change. It only delivers paths; decoding stays
// with the goroutine that owns the Nexus.
//
// Events and Errors are closed after Close returns.
type SnapshotWatcher struct {
	watcher *fsnotify.Watcher
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// WatchSnapshots starts watching dirs for changed snapshot files.
func WatchSnapshots(dirs ...string) (*SnapshotWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	sw := &SnapshotWatcher{
		watcher: w,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go sw.run()
	return sw, nil
}

// Close stops the watcher.
func (w *SnapshotWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

// pending is a scheduled report for one path. seq tells a stale timer that
// fired concurrently with a newer event apart from the current one.
type pending struct {
	timer *time.Timer
	seq   uint64
}

type fired struct {
	name string
	seq  uint64
}

func (w *SnapshotWatcher) run() {
	pend := make(map[string]*pending)
	fire := make(chan fired)
	defer func() {
		for _, p := range pend {
			p.timer.Stop()
		}
		close(w.Events)
		close(w.Errors)
		close(w.done)
	}()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isSnapshotFile(event.Name) {
				continue
			}
			// report once the path has been quiet for watchDebounce
			p := pend[event.Name]
			if p == nil {
				p = &pending{}
				pend[event.Name] = p
			} else {
				p.timer.Stop()
			}
			p.seq++
			f := fired{name: event.Name, seq: p.seq}
			p.timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- f:
				case <-w.closeCh:
				}
			})
		case f := <-fire:
			if p := pend[f.name]; p == nil || p.seq != f.seq {
				continue
			}
			delete(pend, f.name)
			select {
			case w.Events <- f.name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			case <-w.closeCh:
				return
			}
		case <-w.closeCh:
			return
		}
	}
}

func isSnapshotFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == SnapshotExt
}
