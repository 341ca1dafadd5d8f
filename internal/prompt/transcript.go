package prompt

import (
	"fmt"
	"strings"

	"github.com/worldsun-app/coopeartion-project/internal/session"
)

var roleLabels = map[string]string{
	session.RoleUser:      "提問者",
	session.RoleAssistant: "機器人",
}

// Transcript renders history one line per message. Discussion lines already
// carry the speaker's name.
func Transcript(history []session.Message) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		if m.Role == session.RoleDiscussion {
			lines = append(lines, "- "+m.Content)
			continue
		}
		label, ok := roleLabels[m.Role]
		if !ok {
			label = "發言者"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, m.Content))
	}
	return strings.Join(lines, "\n")
}

func BuildConversationSummaryPrompt(title string, history []session.Message) string {
	return fmt.Sprintf(`客戶名稱：%s

這是一段關於此客戶的對話歷史紀錄，其中包含了團隊成員的討論和與機器人的問答。
---
%s
---
任務：請將以上整段對話紀錄（包含問答和討論）整理成一份重點摘要，總結團隊的發現、關鍵問題點和最終結論。
格式請用項目符號（bullet points）。`, title, Transcript(history))
}

// BuildSegmentSummaryPrompt condenses the latest exchange so it can replace
// the raw messages in history.
func BuildSegmentSummaryPrompt(segment []session.Message) string {
	return fmt.Sprintf(`以下是團隊最近一段討論與機器人的問答。
---
%s
---
任務：請用三到五句話精簡整理這段內容的重點與結論，保留提到的產品名稱、數字與待辦事項。只輸出摘要本身。`, Transcript(segment))
}
