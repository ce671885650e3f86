package panel

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/rigview/logging"
)

// Watcher reports when a settings file is written. It watches the file's directory so
// editors that replace the file by renaming are seen too.
type Watcher struct {
	fsw     *fsnotify.Watcher
	target  string
	changes chan string
	logger  logging.Logger

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewWatcher starts watching path.
func NewWatcher(path string, logger logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating settings watcher")
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		utils.UncheckedError(fsw.Close())
		return nil, errors.Wrapf(err, "watching %q", filepath.Dir(abs))
	}
	w := &Watcher{
		fsw:     fsw,
		target:  abs,
		changes: make(chan string, 1),
		logger:  logger,
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	utils.PanicCapturingGo(func() {
		defer w.wg.Done()
		w.run()
	})
	return w, nil
}

// Changes delivers the watched path after it changes. Bursts of writes collapse into a
// single pending notification.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			select {
			case w.changes <- w.target:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("settings watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}
