package domain

import "context"

// Role is the author of a chat turn.
type Role string

// Chat roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is one of the supported roles.
func (r Role) IsValid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// Message is one chat turn sent to the generation service.
type Message struct {
	Role    Role
	Content string
}

// Generator is the chat completion contract. Single-shot and streamed
// completions are separate operations, so a caller asking for a complete
// string can never be handed a lazy sequence.
type Generator interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Stream(ctx context.Context, messages []Message) (FragmentStream, error)
}

// FragmentStream yields the assistant reply incrementally.
// Recv returns io.EOF once the provider signals end of stream.
// Close releases the underlying connection and is safe to call more than once.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}
