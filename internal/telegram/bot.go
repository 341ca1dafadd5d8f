// Package telegram serves the advisor over a Telegram bot using long
// polling.
package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/worldsun-app/coopeartion-project/internal/service"
)

const pollTimeout = 60

type Handler interface {
	Handle(ctx context.Context, cmd service.Command) service.Reply
}

// botAPI is the subset of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	StopReceivingUpdates()
}

// slowCommands get a typing indicator while they run.
var slowCommands = map[string]bool{
	service.CmdAsk:      true,
	service.CmdQuery:    true,
	service.CmdProducts: true,
	service.CmdSearchDB: true,
	service.CmdEnd:      true,
	service.CmdSave:     true,
}

type Bot struct {
	api     botAPI
	handler Handler

	mu     sync.Mutex
	queues map[int64]*chatQueue
	wg     sync.WaitGroup
}

type chatQueue struct {
	pending []*tgbotapi.Message
}

func New(token string, handler Handler) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(api, handler), nil
}

func newBot(api botAPI, handler Handler) *Bot {
	return &Bot{api: api, handler: handler, queues: make(map[int64]*chatQueue)}
}

// Run polls for updates until ctx is done. Messages of one chat are handled
// strictly in arrival order; different chats proceed independently.
func (b *Bot) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)
	logger.Info("telegram bot polling started")
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message == nil || upd.Message.Chat == nil {
				continue
			}
			b.dispatch(ctx, upd.Message)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[chatID]
	if ok {
		q.pending = append(q.pending, msg)
		return
	}
	q = &chatQueue{pending: []*tgbotapi.Message{msg}}
	b.queues[chatID] = q
	b.wg.Add(1)
	go b.drain(ctx, chatID, q)
}

func (b *Bot) drain(ctx context.Context, chatID int64, q *chatQueue) {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		if len(q.pending) == 0 {
			delete(b.queues, chatID)
			b.mu.Unlock()
			return
		}
		msg := q.pending[0]
		q.pending = q.pending[1:]
		b.mu.Unlock()
		b.handleMessage(ctx, msg)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	logger := logutil.GetLogger(ctx).With(zap.Int64("chat_id", msg.Chat.ID))
	cmd := ToCommand(msg)
	if slowCommands[service.NormalizeCommand(cmd.Name)] {
		if _, err := b.api.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
			logger.Debug("send typing action failed", zap.Error(err))
		}
	}
	reply := b.handler.Handle(ctx, cmd)
	if strings.TrimSpace(reply.Text) == "" {
		return
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, reply.Text)
	if _, err := b.api.Send(out); err != nil {
		logger.Error("send reply failed", zap.String("status", reply.Status), zap.Error(err))
	}
}

// ToCommand maps a Telegram message onto an advisor command. The chat id is
// the conversation id.
func ToCommand(msg *tgbotapi.Message) service.Command {
	cmd := service.Command{
		ConversationID: strconv.FormatInt(msg.Chat.ID, 10),
		Sender:         senderName(msg.From),
	}
	if msg.IsCommand() {
		cmd.Name = msg.Command()
		cmd.Args = strings.Fields(msg.CommandArguments())
		return cmd
	}
	cmd.Text = msg.Text
	return cmd
}

func senderName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName + " " + u.LastName))
	if name == "" {
		name = u.UserName
	}
	return name
}
