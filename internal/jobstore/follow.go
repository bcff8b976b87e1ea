package jobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Follow tails path, writing newly appended bytes to w, until ctx is
// cancelled. It prefers fsnotify (inotify on Linux) and falls back to
// polling if the watcher cannot be created, matching spec.md §4.7's
// "seek to end, poll or inotify" contract.
func Follow(ctx context.Context, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("jobstore: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("jobstore: seek %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return pollFollow(ctx, f, w)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return pollFollow(ctx, f, w)
	}

	drain := func() error {
		_, err := io.Copy(w, f)
		return err
	}
	if err := drain(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := drain(); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("jobstore: watch %s: %w", path, err)
		}
	}
}

func pollFollow(ctx context.Context, f *os.File, w io.Writer) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := io.Copy(w, f); err != nil {
				return err
			}
		}
	}
}
