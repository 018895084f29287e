package presence

// Conn is the broker's view of one live client channel. The transport assigns
// the ID and owns the framing; the broker only emits events through it.
//
// Emit must not block: implementations are expected to enqueue and return.
type Conn interface {
	ID() string
	Emit(event string, payload any) error
}
