package answer

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragbot/internal/domain"
	"github.com/kailas-cloud/ragbot/internal/domain/conversation"
	"github.com/kailas-cloud/ragbot/internal/usecase/pack"
)

const (
	systemBase = "You are RAGBot, a precise assistant. Use the provided context to answer. " +
		"When a document of type \"aggregation\" is present, its values were computed directly " +
		"from the data: treat them as authoritative and report them exactly."
	systemDontKnow = " If the answer is not in the context, say you don't know."
	systemGuess    = " If the context is insufficient, say so, then give your best-effort answer " +
		"and mark it clearly as a guess."
	systemTail = " Be concise, cite sources with [Document N] when relevant."

	noContext = "(no documents found)"
)

func systemPrompt(policy FallbackPolicy) string {
	if policy == FallbackBestEffort {
		return systemBase + systemGuess + systemTail
	}
	return systemBase + systemDontKnow + systemTail
}

// buildMessages assembles the system turn and one user turn carrying the
// question, recent history and the numbered context blocks.
func buildMessages(q conversation.Query, passages []pack.Passage, historyTurns int, policy FallbackPolicy) []domain.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", q.Question())

	if history := q.RecentHistory(historyTurns); len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Context:\n")
	if len(passages) == 0 {
		b.WriteString(noContext)
	}
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Document %d]\nTitle: %s\nSource: %s\nURL: %s\n---\n%s",
			i+1, p.Title, p.Source, p.URL, p.Content)
	}
	b.WriteString("\n\nProvide a helpful answer.")

	return []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt(policy)},
		{Role: domain.RoleUser, Content: b.String()},
	}
}
