package solve

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/astrolab/starsolve/pkg/errors"
)

// settleDelay is how long a new file must sit quietly before it is solved,
// so half-written captures are not picked up mid-transfer.
const settleDelay = 500 * time.Millisecond

// watch keeps solving new images appearing in dirs until the context is
// cancelled.
func (r *runner) watch(ctx context.Context, dirs []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapIO("watch", "", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return errors.WrapIO("watch", dir, err)
		}
	}
	r.log.Info().Strs("dirs", dirs).Msg("Watching for new images")

	// Pending files and when they were last written to.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settleDelay / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !isImage(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Error().Err(err).Msg("Watch error")

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < settleDelay {
					continue
				}
				delete(pending, path)
				r.solveOne(path)
			}
		}
	}
}
