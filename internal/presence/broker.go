package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nfrund/chatrooms/internal/domain"
	"github.com/nfrund/chatrooms/internal/pubsub"
)

// MessageStore is the persistence the broker needs: best-effort append and a
// bounded read of a room's recent history.
type MessageStore interface {
	Append(ctx context.Context, msg domain.ChatMessage) error
	FetchRecent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error)
}

// Broker handles join/leave/disconnect/create-room/send-message events. It
// mutates the Registry and Directory, calls the MessageStore, and fans
// notifications out to the affected connections.
//
// mu serializes one event's registry and directory mutations together with
// the fan-out that follows, so every member of a room observes emissions in
// the same order. It is never held across a MessageStore call.
type Broker struct {
	mu        sync.Mutex
	registry  *Registry
	directory *Directory

	store     MessageStore
	publisher pubsub.Publisher
	validate  *validator.Validate
	logger    *slog.Logger

	seed         []string
	historyLimit int
	storeTimeout time.Duration
	policy       UnknownRoomPolicy
	now          func() time.Time
}

// NewBroker creates a broker backed by store. The directory is seeded with
// DefaultRooms unless WithDefaultRooms says otherwise.
func NewBroker(store MessageStore, opts ...Option) *Broker {
	b := &Broker{
		registry:     NewRegistry(),
		store:        store,
		publisher:    pubsub.Discard,
		validate:     validator.New(),
		logger:       slog.Default().With("service", "broker"),
		seed:         DefaultRooms,
		historyLimit: DefaultHistoryLimit,
		storeTimeout: DefaultStoreTimeout,
		policy:       PolicyAdHoc,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.directory = NewDirectory(b.seed...)
	return b
}

// Registry exposes the connection registry for read-only views.
func (b *Broker) Registry() *Registry { return b.registry }

// Directory exposes the room directory for read-only views.
func (b *Broker) Directory() *Directory { return b.directory }

// Connect registers a freshly opened transport connection.
func (b *Broker) Connect(conn Conn) {
	b.registry.Add(conn)
	b.logger.Debug("Connection registered", "conn_id", conn.ID(), "connections", b.registry.Len())
}

// GetRooms replies to the requester with the current room list.
func (b *Broker) GetRooms(ctx context.Context, connID string) error {
	conn, ok := b.registry.Get(connID)
	if !ok {
		return fmt.Errorf("get rooms for %q: %w", connID, domain.ErrConnNotFound)
	}
	b.emit([]Conn{conn}, EventRoomsList, b.directory.List())
	return nil
}

// CreateRoom lists a new room and announces it to every connection. Creating a
// room that already exists returns domain.ErrRoomExists and emits nothing.
func (b *Broker) CreateRoom(ctx context.Context, req CreateRoomRequest) (domain.Room, error) {
	if err := b.check(&req); err != nil {
		return domain.Room{}, err
	}

	b.mu.Lock()
	room, err := b.directory.Create(req.RoomName)
	if err != nil {
		b.mu.Unlock()
		return domain.Room{}, err
	}
	b.emit(b.registry.All(), EventRoomCreated, room)
	b.mu.Unlock()

	b.logger.Info("Room created", "room", room.Name)
	publishActivity(ctx, b, TopicRoomCreated, RoomCreated{Room: room.Name, At: b.now()})
	return room, nil
}

// JoinRoom binds the connection to a room, replacing any previous binding in
// one step, then replies with the room's recent history and broadcasts the new
// occupancy to the room.
func (b *Broker) JoinRoom(ctx context.Context, connID string, req JoinRoomRequest) error {
	if err := b.check(&req); err != nil {
		return err
	}
	room := req.RoomName

	if !b.directory.Exists(room) {
		switch b.policy {
		case PolicyReject:
			return fmt.Errorf("join %q: %w", room, domain.ErrUnknownRoom)
		case PolicyCreate:
			if _, err := b.CreateRoom(ctx, CreateRoomRequest{RoomName: room}); err != nil && !errors.Is(err, domain.ErrRoomExists) {
				return err
			}
		}
	}

	b.mu.Lock()
	prior, hadPrior, err := b.registry.Rebind(connID, req.Username, room)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	priorCount := 0
	if hadPrior {
		priorCount = b.directory.Decrement(prior.Room)
		if prior.Room != room {
			b.emit(b.registry.Members(prior.Room), EventUserCountUpdated, UserCountUpdate{Count: priorCount})
		}
	}
	count := b.directory.Increment(room)
	b.mu.Unlock()

	if hadPrior {
		publishActivity(ctx, b, TopicRoomLeft, RoomLeft{
			ConnID: connID, User: prior.User, Room: prior.Room, UserCount: priorCount, Reason: ReasonRejoin, At: b.now(),
		})
	}
	publishActivity(ctx, b, TopicRoomJoined, RoomJoined{
		ConnID: connID, User: req.Username, Room: room, UserCount: count, At: b.now(),
	})

	// Other events may run while the history loads, so counts are re-read below.
	history := b.fetchHistory(ctx, room)

	b.mu.Lock()
	defer b.mu.Unlock()

	current, bound := b.registry.Lookup(connID)
	conn, live := b.registry.Get(connID)
	if !bound || !live || current.Room != room {
		b.logger.Debug("Connection moved on before history loaded", "conn_id", connID, "room", room)
		return nil
	}

	count = b.directory.Occupancy(room)
	b.emit([]Conn{conn}, EventRoomJoined, RoomJoinedReply{Messages: history, UserCount: count})
	b.emit(b.registry.Members(room), EventUserCountUpdated, UserCountUpdate{Count: count})

	b.logger.Info("Joined room", "conn_id", connID, "user", req.Username, "room", room, "user_count", count)
	return nil
}

// SendMessage relays a message to the sender's room. Persistence is best
// effort: a failing store is logged and the message is still delivered.
func (b *Broker) SendMessage(ctx context.Context, connID string, req SendMessageRequest) error {
	if err := b.check(&req); err != nil {
		return err
	}

	binding, ok := b.registry.Lookup(connID)
	if !ok {
		return fmt.Errorf("send from %q: %w", connID, domain.ErrNotBound)
	}

	msg := domain.NewChatMessage(binding.Room, binding.User, req.Text, b.now())

	persisted := true
	storeCtx, cancel := context.WithTimeout(ctx, b.storeTimeout)
	if err := b.store.Append(storeCtx, msg); err != nil {
		persisted = false
		b.logger.Error("Failed to persist message", "room", msg.Room, "user", msg.User, "error", err)
	}
	cancel()

	b.mu.Lock()
	b.emit(b.registry.Members(binding.Room), EventMessageReceived, msg)
	b.mu.Unlock()

	publishActivity(ctx, b, TopicMessageSent, MessageSent{Message: msg, Persisted: persisted})
	return nil
}

// LeaveRoom unbinds the connection and broadcasts the lowered occupancy to the
// room it left.
func (b *Broker) LeaveRoom(ctx context.Context, connID string) error {
	if _, ok := b.release(ctx, connID, false, ReasonLeave); !ok {
		return fmt.Errorf("leave from %q: %w", connID, domain.ErrNotBound)
	}
	return nil
}

// Disconnect forgets the connection. A bound connection leaves its room
// exactly as with LeaveRoom.
func (b *Broker) Disconnect(ctx context.Context, connID string) {
	prior, ok := b.release(ctx, connID, true, ReasonDisconnect)
	if ok {
		b.logger.Info("Connection disconnected from room", "conn_id", connID, "room", prior.Room)
		return
	}
	b.logger.Debug("Connection disconnected", "conn_id", connID)
}

// release ends a binding (and optionally the whole registration) and fans out
// the updated count.
func (b *Broker) release(ctx context.Context, connID string, remove bool, reason string) (domain.Binding, bool) {
	b.mu.Lock()
	var (
		prior domain.Binding
		ok    bool
	)
	if remove {
		prior, ok = b.registry.Remove(connID)
	} else {
		prior, ok = b.registry.Unbind(connID)
	}
	if !ok {
		b.mu.Unlock()
		return domain.Binding{}, false
	}
	count := b.directory.Decrement(prior.Room)
	b.emit(b.registry.Members(prior.Room), EventUserCountUpdated, UserCountUpdate{Count: count})
	b.mu.Unlock()

	publishActivity(ctx, b, TopicRoomLeft, RoomLeft{
		ConnID: connID, User: prior.User, Room: prior.Room, UserCount: count, Reason: reason, At: b.now(),
	})
	return prior, true
}

// fetchHistory loads the room's recent messages oldest first. A failing store
// yields an empty history rather than blocking the join.
func (b *Broker) fetchHistory(ctx context.Context, room string) []domain.ChatMessage {
	storeCtx, cancel := context.WithTimeout(ctx, b.storeTimeout)
	defer cancel()

	history, err := b.store.FetchRecent(storeCtx, room, b.historyLimit)
	if err != nil {
		b.logger.Error("Failed to load room history", "room", room, "error", err)
		return []domain.ChatMessage{}
	}
	if history == nil {
		return []domain.ChatMessage{}
	}
	slices.SortStableFunc(history, func(a, c domain.ChatMessage) int {
		return a.CreatedAt.Compare(c.CreatedAt)
	})
	return history
}

// emit sends one event to each target, logging failures. Callers hold b.mu
// when ordering across recipients matters.
func (b *Broker) emit(targets []Conn, event string, payload any) {
	for _, conn := range targets {
		if err := conn.Emit(event, payload); err != nil {
			b.logger.Warn("Failed to emit event", "event", event, "conn_id", conn.ID(), "error", err)
		}
	}
}

// check trims req in place and validates it. req must be a pointer.
func (b *Broker) check(req any) error {
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	if err := b.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	return nil
}

func publishActivity[T any](ctx context.Context, b *Broker, event pubsub.Event[T], payload T) {
	if err := pubsub.Publish(ctx, b.publisher, event, payload); err != nil {
		b.logger.Warn("Failed to publish activity", "topic", event.Name(), "error", err)
	}
}
