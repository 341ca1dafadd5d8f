package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/worldsun-app/coopeartion-project/internal/planner"
	"github.com/worldsun-app/coopeartion-project/internal/prompt"
	"github.com/worldsun-app/coopeartion-project/internal/session"
	"github.com/worldsun-app/coopeartion-project/internal/workspace"
)

const (
	CmdStart    = "start"
	CmdAsk      = "ask"
	CmdQuery    = "query"
	CmdProducts = "products"
	CmdSearchDB = "search_db"
	CmdEnd      = "end"
	CmdSave     = "save"
	CmdCancel   = "cancel"
	// CmdMessage marks a plain chat message rather than a command.
	CmdMessage = ""
)

// Reply statuses let transports tell outcomes apart without parsing text.
const (
	StatusOK         = "ok"
	StatusIgnored    = "ignored"
	StatusUsage      = "usage"
	StatusNoSession  = "no_session"
	StatusConflict   = "conflict"
	StatusNotFound   = "not_found"
	StatusAmbiguous  = "ambiguous"
	StatusNoMatch    = "no_match"
	StatusFailed     = "failed"
	StatusUnknownCmd = "unknown_command"
)

type Command struct {
	ConversationID string
	Name           string
	Args           []string
	// Text is the raw message body for plain messages.
	Text   string
	Sender string
}

type Reply struct {
	Status string `json:"status"`
	Text   string `json:"text"`
}

type Generator interface {
	Answer(ctx context.Context, prompt string) (string, error)
	AnswerWithWebSearch(ctx context.Context, prompt string) (string, error)
	Summarize(ctx context.Context, prompt string) (string, error)
}

type Workspace interface {
	FindPagesByTitle(ctx context.Context, name string) ([]workspace.Page, error)
	GetSectionText(ctx context.Context, pageID string) (string, error)
	AppendBlocks(ctx context.Context, pageID string, blocks []workspace.Block) error
}

type Planner interface {
	Run(ctx context.Context, question, filterExpr string) *planner.Plan
}

type AdvisorConfig struct {
	SessionTTL time.Duration
	Language   string
}

type AdvisorService struct {
	gen       Generator
	planner   Planner
	workspace Workspace
	store     session.Store
	cfg       AdvisorConfig
}

func NewAdvisorService(gen Generator, pl Planner, ws Workspace, store session.Store, cfg AdvisorConfig) *AdvisorService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	return &AdvisorService{gen: gen, planner: pl, workspace: ws, store: store, cfg: cfg}
}

// NormalizeCommand turns "/Ask@SomeBot" into "ask".
func NormalizeCommand(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

func (s *AdvisorService) Handle(ctx context.Context, cmd Command) Reply {
	name := NormalizeCommand(cmd.Name)
	convLogger(ctx, cmd.ConversationID).Debug("handle chat command", zap.String("command", name), zap.Int("args", len(cmd.Args)))
	switch name {
	case CmdStart:
		return ok(msgHelp)
	case CmdAsk:
		return s.ask(ctx, cmd)
	case CmdQuery:
		return s.query(ctx, cmd)
	case CmdProducts:
		return s.products(ctx, cmd)
	case CmdSearchDB:
		return s.searchDB(ctx, cmd)
	case CmdEnd:
		return s.end(ctx, cmd)
	case CmdSave:
		return s.save(ctx, cmd)
	case CmdCancel:
		return s.cancel(ctx, cmd)
	case CmdMessage:
		return s.discussion(ctx, cmd)
	default:
		return Reply{Status: StatusUnknownCmd, Text: msgUnknownCommand}
	}
}

func convLogger(ctx context.Context, id string) *zap.Logger {
	return logutil.GetLogger(ctx).With(zap.String("conversation_id", id))
}

func ok(text string) Reply {
	return Reply{Status: StatusOK, Text: text}
}

func failed(text string) Reply {
	return Reply{Status: StatusFailed, Text: text}
}

func (s *AdvisorService) loadState(ctx context.Context, id string) (*session.ConversationState, *Reply) {
	state, err := s.store.Get(ctx, id)
	if err != nil {
		convLogger(ctx, id).Error("load session failed", zap.Error(err))
		r := failed(msgSessionStore)
		return nil, &r
	}
	return state, nil
}

func (s *AdvisorService) saveState(ctx context.Context, id string, state *session.ConversationState) error {
	if err := s.store.Set(ctx, id, state, s.cfg.SessionTTL); err != nil {
		convLogger(ctx, id).Error("save session failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *AdvisorService) ask(ctx context.Context, cmd Command) Reply {
	logger := convLogger(ctx, cmd.ConversationID)
	if len(cmd.Args) == 0 {
		return Reply{Status: StatusUsage, Text: msgAskUsage}
	}
	state, errReply := s.loadState(ctx, cmd.ConversationID)
	if errReply != nil {
		return *errReply
	}
	if state != nil {
		return Reply{Status: StatusConflict, Text: fmt.Sprintf(msgSessionActive, state.CustomerTitle)}
	}

	name := cmd.Args[0]
	pages, err := s.workspace.FindPagesByTitle(ctx, name)
	if err != nil {
		logger.Error("find customer pages failed", zap.String("name", name), zap.Error(err))
		return failed(msgCustomerLookup)
	}
	switch {
	case len(pages) == 0:
		return Reply{Status: StatusNotFound, Text: fmt.Sprintf(msgCustomerAbsent, name)}
	case len(pages) > 1:
		titles := make([]string, 0, len(pages))
		for _, p := range pages {
			titles = append(titles, p.Title)
		}
		return Reply{Status: StatusAmbiguous, Text: fmt.Sprintf(msgCustomerMany, strings.Join(titles, "\n- "))}
	}

	page := pages[0]
	profile, err := s.workspace.GetSectionText(ctx, page.ID)
	if err != nil {
		logger.Error("read customer profile failed", zap.String("page_id", page.ID), zap.Error(err))
		return failed(msgCustomerLookup)
	}
	question := strings.Join(cmd.Args[1:], " ")
	state = &session.ConversationState{
		CustomerTitle: page.Title,
		PageID:        page.ID,
		PortraitText:  profile,
	}
	answer, err := s.gen.Answer(ctx, prompt.BuildProfilePrompt(page.Title, profile, question))
	if err != nil {
		logger.Error("profile answer failed", zap.Error(err))
		answer = msgGenerateFailed
	} else {
		state.Append(session.RoleUser, question)
		state.Append(session.RoleAssistant, answer)
	}
	if err := s.saveState(ctx, cmd.ConversationID, state); err != nil {
		return failed(msgSessionStore)
	}
	logger.Info("customer session started", zap.String("page_id", page.ID))
	if question == "" {
		return ok(fmt.Sprintf(msgProfileAnswer, page.Title, answer))
	}
	return ok(fmt.Sprintf(msgAskAnswer, page.Title, question, answer))
}

func (s *AdvisorService) query(ctx context.Context, cmd Command) Reply {
	state, errReply := s.loadState(ctx, cmd.ConversationID)
	if errReply != nil {
		return *errReply
	}
	if state == nil {
		return Reply{Status: StatusNoSession, Text: msgNeedSession}
	}
	question := strings.Join(cmd.Args, " ")
	if strings.TrimSpace(question) == "" {
		return Reply{Status: StatusUsage, Text: msgQueryUsage}
	}
	discussion := session.DiscussionContext(state.History)
	answer, err := s.gen.AnswerWithWebSearch(ctx, prompt.BuildQueryPrompt(discussion, question))
	if err != nil {
		convLogger(ctx, cmd.ConversationID).Error("web grounded answer failed", zap.Error(err))
		return failed(msgGenerateFailed)
	}
	s.checkpoint(ctx, cmd.ConversationID, state, question, answer)
	return ok(answer)
}

func (s *AdvisorService) products(ctx context.Context, cmd Command) Reply {
	state, errReply := s.loadState(ctx, cmd.ConversationID)
	if errReply != nil {
		return *errReply
	}
	if state == nil {
		return Reply{Status: StatusNoSession, Text: msgNeedSession}
	}
	question := strings.Join(cmd.Args, " ")
	if strings.TrimSpace(question) == "" {
		return Reply{Status: StatusUsage, Text: msgProductsUsage}
	}
	extra := prompt.BuildDiscussionBlock(session.DiscussionContext(state.History))
	reply := s.AnswerFromKnowledgeBase(ctx, question, "", extra)
	if reply.Status != StatusFailed {
		s.checkpoint(ctx, cmd.ConversationID, state, "/products "+question, reply.Text)
	}
	return reply
}

func (s *AdvisorService) searchDB(ctx context.Context, cmd Command) Reply {
	if len(cmd.Args) < 2 {
		return Reply{Status: StatusUsage, Text: msgSearchUsage}
	}
	return s.AnswerFromKnowledgeBase(ctx, strings.Join(cmd.Args[1:], " "), cmd.Args[0], "")
}

// AnswerFromKnowledgeBase runs the planner and issues one grounded
// generation call over the retrieved segments.
func (s *AdvisorService) AnswerFromKnowledgeBase(ctx context.Context, question, filterExpr, extra string) Reply {
	logger := logutil.GetLogger(ctx)
	plan := s.planner.Run(ctx, question, filterExpr)
	if plan.NoMatch {
		logger.Info("knowledge base has no relevant content", zap.String("filter", filterExpr))
		return Reply{Status: StatusNoMatch, Text: msgNoRelevant}
	}
	p := prompt.BuildGroundedPrompt(prompt.GroundedInput{
		Question:     question,
		Context:      prompt.BuildContext(plan.Segments, plan.Summary),
		Extra:        extra,
		ScopeProduct: plan.ScopeProduct,
		Language:     s.cfg.Language,
	})
	answer, err := s.gen.Answer(ctx, p)
	if err != nil {
		logger.Error("grounded answer failed", zap.Error(err))
		return failed(msgGenerateFailed)
	}
	return ok(answer)
}

// checkpoint replaces the messages since the last assistant turn with a
// summary of them plus the new exchange. A session removed in the meantime
// stays removed.
func (s *AdvisorService) checkpoint(ctx context.Context, id string, state *session.ConversationState, question, answer string) {
	logger := convLogger(ctx, id)
	segment := session.RecentSegment(state.History, question, answer)
	summary, err := s.gen.Summarize(ctx, prompt.BuildSegmentSummaryPrompt(segment))

	latest, lerr := s.store.Get(ctx, id)
	if lerr != nil {
		logger.Error("reload session for compaction failed", zap.Error(lerr))
		return
	}
	if latest == nil {
		logger.Info("session ended before compaction, skip")
		return
	}
	if err != nil {
		logger.Warn("segment summary failed, keep raw history", zap.Error(err))
		latest.Append(session.RoleUser, question)
		latest.Append(session.RoleAssistant, answer)
	} else {
		latest.History = session.Compact(latest.History, summary)
	}
	if err := s.saveState(ctx, id, latest); err != nil {
		return
	}
	logger.Debug("session history compacted", zap.Int("history", len(latest.History)))
}

func (s *AdvisorService) end(ctx context.Context, cmd Command) Reply {
	logger := convLogger(ctx, cmd.ConversationID)
	state, errReply := s.loadState(ctx, cmd.ConversationID)
	if errReply != nil {
		return *errReply
	}
	if state == nil {
		return Reply{Status: StatusNoSession, Text: msgNoSession}
	}
	summary, err := s.gen.Summarize(ctx, prompt.BuildConversationSummaryPrompt(state.CustomerTitle, state.History))
	if err != nil {
		logger.Error("conversation summary failed", zap.Error(err))
		return failed(msgSummaryFailed)
	}
	latest, errReply := s.loadState(ctx, cmd.ConversationID)
	if errReply != nil {
		return *errReply
	}
	if latest == nil {
		logger.Info("session cancelled while summarizing, drop summary")
		return Reply{Status: StatusNoSession, Text: msgSessionGone}
	}
	latest.PendingSummary = summary
	latest.AwaitingSave = true
	if err := s.saveState(ctx, cmd.ConversationID, latest); err != nil {
		return failed(msgSessionStore)
	}
	return ok(fmt.Sprintf(msgSummaryReady, latest.CustomerTitle, summary))
}

func (s *AdvisorService) save(ctx context.Context, cmd Command) Reply {
	logger := convLogger(ctx, cmd.ConversationID)
	state, errReply := s.loadState(ctx, cmd.ConversationID)
	if errReply != nil {
		return *errReply
	}
	if state == nil {
		return Reply{Status: StatusNoSession, Text: msgNoSession}
	}
	if !state.AwaitingSave || strings.TrimSpace(state.PendingSummary) == "" {
		return Reply{Status: StatusUsage, Text: msgSaveNotReady}
	}
	speaker := strings.TrimSpace(cmd.Sender)
	if speaker == "" {
		speaker = msgDefaultSpeaker
	}
	blocks := workspace.SummaryBlocks(fmt.Sprintf(msgSummaryHeading, speaker), state.PendingSummary)
	if err := s.workspace.AppendBlocks(ctx, state.PageID, blocks); err != nil {
		logger.Error("append summary to workspace failed", zap.String("page_id", state.PageID), zap.Error(err))
		return failed(msgSaveFailed)
	}
	if err := s.store.Delete(ctx, cmd.ConversationID); err != nil {
		logger.Error("delete session after save failed", zap.Error(err))
	}
	logger.Info("discussion summary saved", zap.String("page_id", state.PageID), zap.Int("blocks", len(blocks)))
	return ok(fmt.Sprintf(msgSaved, state.CustomerTitle))
}

func (s *AdvisorService) cancel(ctx context.Context, cmd Command) Reply {
	state, errReply := s.loadState(ctx, cmd.ConversationID)
	if errReply != nil {
		return *errReply
	}
	if state == nil {
		return Reply{Status: StatusNoSession, Text: msgNoSession}
	}
	if err := s.store.Delete(ctx, cmd.ConversationID); err != nil {
		convLogger(ctx, cmd.ConversationID).Error("delete session failed", zap.Error(err))
		return failed(msgSessionStore)
	}
	return ok(msgCancelled)
}

func (s *AdvisorService) discussion(ctx context.Context, cmd Command) Reply {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return Reply{Status: StatusIgnored}
	}
	state, errReply := s.loadState(ctx, cmd.ConversationID)
	if errReply != nil {
		return *errReply
	}
	if state == nil {
		return Reply{Status: StatusIgnored}
	}
	speaker := strings.TrimSpace(cmd.Sender)
	if speaker == "" {
		speaker = msgDefaultSpeaker
	}
	state.Append(session.RoleDiscussion, fmt.Sprintf("%s: %s", speaker, text))
	if err := s.saveState(ctx, cmd.ConversationID, state); err != nil {
		return failed(msgSessionStore)
	}
	return Reply{Status: StatusIgnored}
}

// ParseCommandLine splits "/cmd a b" into its command and arguments. Text
// that does not start with "/" is not a command.
func ParseCommandLine(text string) (string, []string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	fields := strings.Fields(text)
	return fields[0], fields[1:]
}
