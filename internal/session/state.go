// Package session keeps per-conversation state between chat commands.
package session

const (
	RoleUser       = "user"
	RoleAssistant  = "assistant"
	RoleDiscussion = "discussion"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationState is the session of one chat conversation about one
// customer. It exists from a successful profile load until save or cancel.
type ConversationState struct {
	CustomerTitle  string    `json:"customer_title"`
	PageID         string    `json:"page_id"`
	PortraitText   string    `json:"portrait"`
	History        []Message `json:"history"`
	PendingSummary string    `json:"pending_summary,omitempty"`
	AwaitingSave   bool      `json:"awaiting_save,omitempty"`
}

func (s *ConversationState) Append(role, content string) {
	s.History = append(s.History, Message{Role: role, Content: content})
}

// SplitAtLastAssistant splits history at the most recent assistant message.
// recent starts with that message; with no assistant message before is nil
// and recent is the whole history.
func SplitAtLastAssistant(history []Message) (before, recent []Message) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleAssistant {
			return history[:i:i], history[i:]
		}
	}
	return nil, history
}

// DiscussionContext returns the discussion and assistant contents since the
// last assistant turn, oldest first.
func DiscussionContext(history []Message) []string {
	_, recent := SplitAtLastAssistant(history)
	var out []string
	for _, m := range recent {
		if m.Role == RoleDiscussion || m.Role == RoleAssistant {
			out = append(out, m.Content)
		}
	}
	return out
}

// RecentSegment is the slice a compaction checkpoint summarizes: everything
// since the last assistant turn plus the new question and answer.
func RecentSegment(history []Message, question, answer string) []Message {
	_, recent := SplitAtLastAssistant(history)
	out := make([]Message, 0, len(recent)+2)
	out = append(out, recent...)
	out = append(out,
		Message{Role: RoleUser, Content: question},
		Message{Role: RoleAssistant, Content: answer},
	)
	return out
}

// Compact replaces everything from the last assistant turn onward with a
// single assistant message holding summary. The input is not modified.
func Compact(history []Message, summary string) []Message {
	before, _ := SplitAtLastAssistant(history)
	out := make([]Message, 0, len(before)+1)
	out = append(out, before...)
	return append(out, Message{Role: RoleAssistant, Content: summary})
}
