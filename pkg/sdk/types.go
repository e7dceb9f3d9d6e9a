package ragbot

// Role is the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one prior message in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AnswerMeta is what the server reports about an answer before streaming it.
type AnswerMeta struct {
	RequestID string
	// Planned is true when the answer is grounded on a computed aggregation.
	Planned bool
	// EmbeddingTokens is set when the question was embedded for retrieval.
	EmbeddingTokens *int
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

// Healthy reports whether every dependency passed.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }

type chatRequest struct {
	Query   string `json:"query"`
	History []Turn `json:"history,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
