package scheduler

import (
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tlgayhan/pedi-mvp/logging"
	"github.com/tlgayhan/pedi-mvp/reference"
)

// startWatching registers the data directory before returning, so a change
// made right after Start is not missed
func (s *Scheduler) startWatching() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory, not the files: editors save by rename
	if err := watcher.Add(s.opts.WatchDir); err != nil {
		watcher.Close()
		return err
	}

	logging.Info("Watching reference data for changes", "dir", s.opts.WatchDir)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer watcher.Close()
		s.watchLoop(watcher)
	}()

	return nil
}

// watchLoop reloads once per burst of events on the dataset files
func (s *Scheduler) watchLoop(watcher *fsnotify.Watcher) {
	var timer *time.Timer
	var pending <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !reference.IsDatasetFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			logging.Debug("Reference data changed", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := s.updateData(s.ctx); err != nil {
				logging.Error("Reload after change failed, keeping previous snapshot", "dir", s.opts.WatchDir, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Reference data watcher error", "error", err)
		}
	}
}
