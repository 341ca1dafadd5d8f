package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/worldsun-app/coopeartion-project/internal/search"
	"github.com/worldsun-app/coopeartion-project/internal/session"
)

func intPtr(v int) *int { return &v }

func TestBuildContext(t *testing.T) {
	require.Equal(t, "只有摘要", BuildContext(nil, " 只有摘要 "))

	got := BuildContext([]search.Segment{
		{Text: "保障一", SourceTitle: "保誠-守護", Page: intPtr(3)},
		{Text: "保障二", SourceTitle: "安聯-傳承"},
	}, "ignored summary")
	require.Equal(t, "source=保誠-守護, page=3: 保障一\n\n---\n\nsource=安聯-傳承, page=unknown: 保障二", got)
}

func TestBuildGroundedPrompt_RuleOrder(t *testing.T) {
	got := BuildGroundedPrompt(GroundedInput{
		Question: "保費多少？",
		Context:  "source=x, page=1: y",
		Extra:    "Amy: 客戶偏好儲蓄",
	})
	persona := strings.Index(got, "1. 你是一位專業")
	extra := strings.Index(got, "2. 下方附有「討論背景」")
	cite := strings.Index(got, "3. 凡是取自資料片段")
	lang := strings.Index(got, "8. 請使用繁體中文回答。")
	require.True(t, persona >= 0 && extra > persona && cite > extra && lang > cite, got)
	require.Contains(t, got, "--- 討論背景 ---\nAmy: 客戶偏好儲蓄")
	require.Contains(t, got, "【問題】\n保費多少？")
	require.NotContains(t, got, "本次回答僅限於")
}

func TestBuildGroundedPrompt_NoExtraNoScope(t *testing.T) {
	got := BuildGroundedPrompt(GroundedInput{Question: "q", Context: "c", Language: "English"})
	require.NotContains(t, got, "討論背景")
	require.Contains(t, got, "7. 請使用English回答。")
}

func TestBuildGroundedPrompt_ScopeRestriction(t *testing.T) {
	got := BuildGroundedPrompt(GroundedInput{Question: "q", Context: "c", ScopeProduct: "保誠守護"})
	require.Contains(t, got, "本次回答僅限於「保誠守護」")
}

func TestBuildProfilePrompt(t *testing.T) {
	got := BuildProfilePrompt("王小明", "保守型投資人", "適合哪種保單？")
	require.Contains(t, got, "客戶名稱：王小明")
	require.Contains(t, got, "4) 適合哪種保單？ 回覆：")

	overview := BuildProfilePrompt("王小明", "保守型投資人", "")
	require.Contains(t, overview, "4) 重點整理：")
}

func TestBuildQueryPrompt(t *testing.T) {
	require.Equal(t, "基於以上討論，請回答這個問題：q", BuildQueryPrompt(nil, " q "))
	got := BuildQueryPrompt([]string{"a", "b"}, "q")
	require.True(t, strings.HasPrefix(got, "請參考以下團隊成員的討論：\n---\na\nb\n---\n"))
}

func TestTranscript(t *testing.T) {
	got := Transcript([]session.Message{
		{Role: session.RoleUser, Content: "q"},
		{Role: session.RoleAssistant, Content: "a"},
		{Role: session.RoleDiscussion, Content: "Amy: hi"},
		{Role: "other", Content: "x"},
	})
	require.Equal(t, "提問者: q\n機器人: a\n- Amy: hi\n發言者: x", got)
	require.Contains(t, BuildConversationSummaryPrompt("王小明", nil), "客戶名稱：王小明")
	require.Contains(t, BuildSegmentSummaryPrompt([]session.Message{{Role: session.RoleUser, Content: "q"}}), "提問者: q")
}
