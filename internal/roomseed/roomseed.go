// Package roomseed loads room names from a plain text file and keeps the
// room directory in step with it while the server runs.
package roomseed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/nfrund/chatrooms/internal/domain"
	"github.com/nfrund/chatrooms/internal/presence"
	"github.com/spf13/afero"
)

// RoomCreator is satisfied by *presence.Broker.
type RoomCreator interface {
	CreateRoom(ctx context.Context, req presence.CreateRoomRequest) (domain.Room, error)
}

// Load reads one room name per line. Blank lines and lines starting with '#'
// are ignored; duplicates keep their first position.
func Load(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rooms file: %w", err)
	}
	defer f.Close()

	var names []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rooms file: %w", err)
	}
	return names, nil
}

// Merge appends the names in extra that base does not already contain.
func Merge(base, extra []string) []string {
	out := append([]string(nil), base...)
	for _, name := range extra {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Apply creates every name missing from the directory and returns how many
// rooms were added. Existing rooms are left alone.
func Apply(ctx context.Context, creator RoomCreator, names []string) int {
	created := 0
	for _, name := range names {
		_, err := creator.CreateRoom(ctx, presence.CreateRoomRequest{RoomName: name})
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrRoomExists):
		default:
			slog.Warn("Skipping room from rooms file", "room", name, "error", err)
		}
	}
	return created
}

// Watcher re-applies the rooms file whenever it changes. Rooms removed from
// the file stay listed; the directory never deletes rooms.
type Watcher struct {
	fs      afero.Fs
	path    string
	creator RoomCreator
	logger  *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewWatcher creates a Watcher for path. fs is used for reading; change
// notifications come from the OS, so path must be a real file.
func NewWatcher(fs afero.Fs, path string, creator RoomCreator) *Watcher {
	return &Watcher{
		fs:      fs,
		path:    filepath.Clean(path),
		creator: creator,
		logger:  slog.Default().With("service", "roomseed"),
	}
}

// Start applies the file once, then watches its directory until ctx is
// canceled. Watching the directory rather than the file survives editors
// that save by renaming.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return nil
	}

	w.reload(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file system watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watcher = watcher

	go w.watch(ctx, watcher)
	w.logger.Info("Watching rooms file", "path", w.path)
	return nil
}

func (w *Watcher) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() {
		watcher.Close()
		w.mu.Lock()
		w.watcher = nil
		w.mu.Unlock()
		w.logger.Debug("Rooms file watcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.reload(ctx)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Rooms file watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	names, err := Load(w.fs, w.path)
	if err != nil {
		w.logger.Warn("Failed to load rooms file", "path", w.path, "error", err)
		return
	}
	if created := Apply(ctx, w.creator, names); created > 0 {
		w.logger.Info("Rooms file applied", "path", w.path, "created", created)
	}
}
