package alerting

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces bursts of write events emitted by editors
// that truncate and rewrite the file.
const debounceDelay = 250 * time.Millisecond

// WatchRulesFile reloads the rule store whenever the rules file
// changes on disk. It blocks until the context is canceled. A reload
// that fails validation is logged and skipped; the previous rule set
// stays active.
func WatchRulesFile(ctx context.Context, path string, store *RuleStore) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file on save, which
	// drops a watch installed on the file itself.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch rules directory: %w", err)
	}

	var debounce *time.Timer
	reload := func() {
		rules, err := LoadRulesFromFile(absPath)
		if err != nil {
			log.Printf("rules reload failed, keeping previous rules: %v", err)
			return
		}
		if err := store.Replace(rules); err != nil {
			log.Printf("rules reload failed, keeping previous rules: %v", err)
			return
		}
		log.Printf("reloaded %d alert rules from %s", len(rules), absPath)
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("rules watcher error: %v", err)
		}
	}
}
