package workspace

import (
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher wraps fsnotify with debouncing: editor and build-tool bursts
// are coalesced into one batch per quiet window, the last operation per
// path winning.
type Watcher struct {
	fsw    *fsnotify.Watcher
	window time.Duration
	out    chan []FSEvent
	stop   chan struct{}
	done   chan struct{}
}

// NewWatcher watches dirs for changes to .tex/.bib/.sty/.cls files.
func NewWatcher(dirs []string, window time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	if window <= 0 {
		window = 100 * time.Millisecond
	}
	w := &Watcher{
		fsw:    fsw,
		window: window,
		out:    make(chan []FSEvent, 8),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Events delivers debounced batches.
func (w *Watcher) Events() <-chan []FSEvent {
	return w.out
}

// Close stops watching and closes the event channel.
func (w *Watcher) Close() error {
	close(w.stop)
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.out)

	pending := make(map[string]FSOp)
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]FSEvent, 0, len(pending))
		for path, op := range pending {
			batch = append(batch, FSEvent{Path: path, Op: op})
		}
		sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
		pending = make(map[string]FSOp)
		select {
		case w.out <- batch:
		case <-w.stop:
		}
	}

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return
			}
			if !Watched(ev.Name) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				pending[ev.Name] = FSCreate
			case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
				pending[ev.Name] = FSDelete
			case ev.Has(fsnotify.Write):
				// create, пришедший раньше в этом же окне, сохраняется
				if _, seen := pending[ev.Name]; !seen {
					pending[ev.Name] = FSModify
				}
			default:
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.window)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.window)
			}
			fire = timer.C

		case <-fire:
			flush()
			fire = nil

		case _, ok := <-w.fsw.Errors:
			if !ok {
				flush()
				return
			}

		case <-w.stop:
			flush()
			return
		}
	}
}
