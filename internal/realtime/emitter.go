package realtime

// Emitter fans a domain event out to connected clients. Delivery is
// best-effort, at-most-once per connected client, and never blocks or fails
// the caller's write path.
type Emitter interface {
	Emit(event string, payload any)
}

// Event names broadcast by the write pipeline.
const (
	EventAddPost     = "add post"
	EventUpdatePost  = "update post"
	EventDeletePost  = "delete post"
	EventUserCreated = "user created"
)

// NoopEmitter drops every event. Used where no realtime channel is wired,
// such as the worker process and most tests.
type NoopEmitter struct{}

func NewNoopEmitter() *NoopEmitter { return &NoopEmitter{} }

func (NoopEmitter) Emit(string, any) {}
