package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/nfrund/chatrooms/internal/domain"
	"github.com/spf13/afero"
)

var _ MessageStore = (*FileStore)(nil)

// FileStore appends messages as JSON lines, one file per room, under a root
// directory of an afero filesystem.
type FileStore struct {
	fs   afero.Fs
	root string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir on fs. Use afero.NewOsFs in
// production and afero.NewMemMapFs in tests.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, wrap("create store dir", err)
	}
	return &FileStore{fs: fs, root: dir}, nil
}

// path maps a room name to its file. Names are escaped so any room name is a
// single safe path element.
func (s *FileStore) path(room string) string {
	return filepath.Join(s.root, url.PathEscape(room)+".jsonl")
}

// Append implements MessageStore.
func (s *FileStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return wrap("append", err)
	}

	line, err := json.Marshal(msg)
	if err != nil {
		return wrap("encode message", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fs.OpenFile(s.path(msg.Room), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return wrap("open room file", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return wrap("append", err)
	}
	return nil
}

// FetchRecent implements MessageStore. Lines that fail to decode are skipped.
func (s *FileStore) FetchRecent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("fetch recent", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fs.Open(s.path(room))
	if errors.Is(err, os.ErrNotExist) {
		return []domain.ChatMessage{}, nil
	}
	if err != nil {
		return nil, wrap("open room file", err)
	}
	defer f.Close()

	var msgs []domain.ChatMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg domain.ChatMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, wrap("read room file", err)
	}
	return tail(msgs, limit), nil
}

// Close implements MessageStore.
func (s *FileStore) Close(ctx context.Context) error { return nil }
