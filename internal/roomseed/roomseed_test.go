package roomseed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nfrund/chatrooms/internal/presence"
	"github.com/nfrund/chatrooms/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	memFs := afero.NewMemMapFs()
	content := "# seeded rooms\nGeneral\n\n  Dev  \nGeneral\nMusic\n"
	require.NoError(t, afero.WriteFile(memFs, "rooms.txt", []byte(content), 0644))

	names, err := Load(memFs, "rooms.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"General", "Dev", "Music"}, names)

	_, err = Load(memFs, "missing.txt")
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := []string{"General", "Random"}
	merged := Merge(base, []string{"Dev", "General"})
	assert.Equal(t, []string{"General", "Random", "Dev"}, merged)
	assert.Equal(t, []string{"General", "Random"}, base)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	broker := presence.NewBroker(store.NewMemoryStore(0))

	created := Apply(ctx, broker, []string{"General", "Dev", "Music"})
	assert.Equal(t, 2, created, "General is seeded already")

	var names []string
	for _, r := range broker.Directory().List() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"General", "Tech Talk", "Random", "Dev", "Music"}, names)

	assert.Zero(t, Apply(ctx, broker, []string{"Dev"}))
}

func TestWatcher_PicksUpChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	path := filepath.Join(dir, "rooms.txt")
	require.NoError(t, os.WriteFile(path, []byte("Dev\n"), 0644))

	broker := presence.NewBroker(store.NewMemoryStore(0))
	w := NewWatcher(afero.NewOsFs(), path, broker)
	require.NoError(t, w.Start(ctx))

	assert.True(t, broker.Directory().Exists("Dev"), "file is applied on start")

	require.NoError(t, os.WriteFile(path, []byte("Dev\nOps\n"), 0644))
	assert.Eventually(t, func() bool {
		return broker.Directory().Exists("Ops")
	}, 3*time.Second, 20*time.Millisecond)

	// Other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("Secret\n"), 0644))
	time.Sleep(100 * time.Millisecond)
	assert.False(t, broker.Directory().Exists("Secret"))
}
