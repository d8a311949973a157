package precond

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// settle is how long Watch waits after a change before rerunning, so a
// burst of writes counts as one.
const settle = 100 * time.Millisecond

// Watch runs req once, then again whenever its spec or predicates file
// changes, until ctx is done. Every outcome goes to report. Watch only
// returns an error when the files cannot be watched.
func (e *Engine) Watch(ctx context.Context, req Request, report func(*Report, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	targets := make(map[string]bool)
	for _, path := range []string{req.SpecPath, req.PredicatesPath} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		targets[abs] = true
		// Watch the directory: editors often replace files by renaming.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	report(e.Synthesize(ctx, req))

	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !targets[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			e.logger.Debug("change detected", zap.String("file", event.Name), zap.Stringer("op", event.Op))
			timer.Reset(settle)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			report(e.Synthesize(ctx, req))
		}
	}
}
