package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func msgs(pairs ...string) []Message {
	out := make([]Message, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Message{Role: pairs[i], Content: pairs[i+1]})
	}
	return out
}

func TestSplitAtLastAssistant(t *testing.T) {
	h := msgs(RoleUser, "q1", RoleAssistant, "a1", RoleDiscussion, "d1", RoleAssistant, "a2", RoleDiscussion, "d2")
	before, recent := SplitAtLastAssistant(h)
	require.Equal(t, msgs(RoleUser, "q1", RoleAssistant, "a1", RoleDiscussion, "d1"), before)
	require.Equal(t, msgs(RoleAssistant, "a2", RoleDiscussion, "d2"), recent)

	before, recent = SplitAtLastAssistant(msgs(RoleDiscussion, "x"))
	require.Nil(t, before)
	require.Len(t, recent, 1)
}

func TestDiscussionContext(t *testing.T) {
	h := msgs(RoleUser, "q1", RoleAssistant, "a1", RoleUser, "skip", RoleDiscussion, "Amy: 我覺得保費太高")
	require.Equal(t, []string{"a1", "Amy: 我覺得保費太高"}, DiscussionContext(h))
	require.Empty(t, DiscussionContext(nil))
}

func TestCompact_ReplacesRecentSegment(t *testing.T) {
	h := msgs(RoleUser, "q1", RoleAssistant, "a1", RoleDiscussion, "d1")
	snapshot := append([]Message(nil), h...)

	got := Compact(h, "summary")
	require.Equal(t, msgs(RoleUser, "q1", RoleAssistant, "summary"), got)
	require.Equal(t, snapshot, h)

	got = Compact(msgs(RoleDiscussion, "d"), "s")
	require.Equal(t, msgs(RoleAssistant, "s"), got)
}

func TestCompact_DoesNotAliasInput(t *testing.T) {
	h := msgs(RoleUser, "q", RoleAssistant, "a", RoleDiscussion, "d")
	got := Compact(h, "s")
	got[0].Content = "changed"
	require.Equal(t, "q", h[0].Content)
}

func TestRecentSegment(t *testing.T) {
	h := msgs(RoleUser, "q1", RoleAssistant, "a1", RoleDiscussion, "d1")
	got := RecentSegment(h, "q2", "a2")
	require.Equal(t, msgs(RoleAssistant, "a1", RoleDiscussion, "d1", RoleUser, "q2", RoleAssistant, "a2"), got)
	require.Len(t, h, 3)
}
