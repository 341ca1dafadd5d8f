// Package prompt renders the instructions sent to the generation model.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/worldsun-app/coopeartion-project/internal/search"
)

const (
	segmentSeparator = "\n\n---\n\n"
	unknownPage      = "unknown"
	defaultLanguage  = "繁體中文"
)

// BuildContext renders retrieved segments in order. With no segments the
// backend summary is used verbatim.
func BuildContext(segments []search.Segment, summary string) string {
	if len(segments) == 0 {
		return strings.TrimSpace(summary)
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		page := unknownPage
		if seg.Page != nil {
			page = strconv.Itoa(*seg.Page)
		}
		parts = append(parts, fmt.Sprintf("source=%s, page=%s: %s", seg.SourceTitle, page, seg.Text))
	}
	return strings.Join(parts, segmentSeparator)
}

type GroundedInput struct {
	Question string
	Context  string
	// Extra is optional conversational context, such as a team discussion.
	Extra string
	// ScopeProduct restricts the answer to one product when set.
	ScopeProduct string
	Language     string
}

func BuildGroundedPrompt(in GroundedInput) string {
	lang := in.Language
	if lang == "" {
		lang = defaultLanguage
	}
	extra := strings.TrimSpace(in.Extra)

	rules := []string{
		"你是一位專業的保險與金融產品顧問，負責依據公司產品資料回答團隊成員的問題。",
	}
	if extra != "" {
		rules = append(rules, "下方附有「討論背景」。請用它判斷哪一個產品或哪些資料片段與問題相關；它僅供參考，不具權威性，與資料片段衝突時以資料片段為準。")
	}
	rules = append(rules,
		"凡是取自資料片段的陳述，句末必須以括號標明出處，格式為 (產品名稱, 第N頁)。",
		"僅根據討論背景所做的推論不需標註出處，但必須說明推論的理由。",
		"如果資料片段不足以回答問題，請直接回答「根據提供的資料，無法找到相關資訊。」",
		"絕對不允許使用資料片段以外的知識，也不可以捏造任何數字、條款或產品名稱。",
		"不要問候、前言或結語；只輸出純文字，不使用 Markdown、表格或任何標記語法。",
		fmt.Sprintf("請使用%s回答。", lang),
	)

	var sb strings.Builder
	for i, r := range rules {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
	}
	if in.ScopeProduct != "" {
		fmt.Fprintf(&sb, "\n本次回答僅限於「%s」，不得引用或比較其他產品的資料。\n", in.ScopeProduct)
	}
	if extra != "" {
		fmt.Fprintf(&sb, "\n--- 討論背景 ---\n%s\n---\n", extra)
	}
	fmt.Fprintf(&sb, "\n--- 資料片段 ---\n%s\n---\n\n【問題】\n%s\n", in.Context, strings.TrimSpace(in.Question))
	return sb.String()
}

// BuildProfilePrompt asks for a structured read of a customer profile. An
// empty question yields the profile overview alone.
func BuildProfilePrompt(title, profile, question string) string {
	question = strings.TrimSpace(question)
	last := "4) 重點整理：[針對客戶畫像的簡短客觀整理]"
	if question != "" {
		last = fmt.Sprintf("4) %s 回覆：[針對問題的簡短客觀回答]", question)
	}
	return fmt.Sprintf(`您是公司內部成員的助理，正在協助團隊針對客戶進行客觀分析與討論。
請根據以下客戶畫像（特別是客戶的人格特質、著重事項及目前資金配置），以客觀公正的立場，簡潔地回答問題。無須前言以及後述。

客戶名稱：%s
客戶畫像（節錄）：
%s

問題：%s
輸出格式：
1) 人格特質：[簡述客戶的人格特質]
2) 客戶著重事項：[簡述客戶目前最著重的事項]
3) 目前資金配置：[簡述客戶目前的資金配置狀況]
%s`, title, profile, question, last)
}

// BuildDiscussionBlock wraps discussion lines for inclusion in a prompt.
func BuildDiscussionBlock(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return fmt.Sprintf("請參考以下團隊成員的討論：\n---\n%s\n---\n", strings.Join(lines, "\n"))
}

func BuildQueryPrompt(discussion []string, question string) string {
	return fmt.Sprintf("%s基於以上討論，請回答這個問題：%s", BuildDiscussionBlock(discussion), strings.TrimSpace(question))
}
