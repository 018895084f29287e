package presence

import (
	"fmt"
	"sync"

	"github.com/nfrund/chatrooms/internal/domain"
)

// DefaultRooms are listed on startup unless the deployment configures its own.
var DefaultRooms = []string{"General", "Tech Talk", "Random"}

// Directory tracks which rooms exist and how many connections occupy each.
//
// Counts are kept for every room name that has occupants, listed or not, so
// ad-hoc rooms (joined without being created) still satisfy the occupancy
// invariant and keep their count if they are created later.
type Directory struct {
	mu     sync.RWMutex
	order  []string       // listed room names, insertion order
	listed map[string]bool
	counts map[string]int
}

// NewDirectory creates a directory pre-seeded with the given room names.
// Duplicate and empty names are skipped.
func NewDirectory(seed ...string) *Directory {
	d := &Directory{
		listed: make(map[string]bool),
		counts: make(map[string]int),
	}
	for _, name := range seed {
		if name == "" || d.listed[name] {
			continue
		}
		d.listed[name] = true
		d.order = append(d.order, name)
	}
	return d
}

// List returns all listed rooms in insertion order with their current counts.
func (d *Directory) List() []domain.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms := make([]domain.Room, 0, len(d.order))
	for _, name := range d.order {
		rooms = append(rooms, domain.Room{Name: name, UserCount: d.counts[name]})
	}
	return rooms
}

// Create lists a new room. It returns domain.ErrRoomExists, leaving the
// directory untouched, when the name is already listed.
func (d *Directory) Create(name string) (domain.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.listed[name] {
		return domain.Room{}, fmt.Errorf("create room %q: %w", name, domain.ErrRoomExists)
	}
	d.listed[name] = true
	d.order = append(d.order, name)
	return domain.Room{Name: name, UserCount: d.counts[name]}, nil
}

// Exists reports whether the room is listed.
func (d *Directory) Exists(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.listed[name]
}

// Increment adds one occupant to the room and returns the new count.
func (d *Directory) Increment(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.counts[name]++
	return d.counts[name]
}

// Decrement removes one occupant, never going below zero, and returns the new
// count. Decrementing an empty room is a no-op so a racing leave and
// disconnect cannot drive the count negative.
func (d *Directory) Decrement(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := d.counts[name]
	if count <= 1 {
		delete(d.counts, name)
		return 0
	}
	d.counts[name] = count - 1
	return count - 1
}

// Occupancy returns the room's live count, 0 for unknown rooms.
func (d *Directory) Occupancy(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.counts[name]
}
