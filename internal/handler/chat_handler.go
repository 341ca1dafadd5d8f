package handler

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/worldsun-app/coopeartion-project/internal/middleware"
	"github.com/worldsun-app/coopeartion-project/internal/pkg/errcode"
	appErr "github.com/worldsun-app/coopeartion-project/internal/pkg/errors"
	"github.com/worldsun-app/coopeartion-project/internal/pkg/response"
	"github.com/worldsun-app/coopeartion-project/internal/service"
)

type ChatHandler struct {
	advisor *service.AdvisorService
}

func NewChatHandler(advisor *service.AdvisorService) *ChatHandler {
	return &ChatHandler{advisor: advisor}
}

// chatRequest carries either an explicit command with args, or free text.
// Free text starting with "/" is parsed as a command line.
type chatRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Text    string   `json:"text"`
	Sender  string   `json:"sender"`
}

type knowledgeRequest struct {
	Question string `json:"question"`
	Filter   string `json:"filter"`
}

func (h *ChatHandler) Command(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	id := strings.TrimSpace(c.Param(middleware.ConversationParam))
	if id == "" {
		handleError(c, fmt.Errorf("missing conversation id: %w", appErr.ErrInvalid))
		return
	}
	cmd := service.Command{ConversationID: id, Name: req.Command, Args: req.Args, Text: req.Text, Sender: req.Sender}
	if cmd.Name == "" {
		cmd.Name, cmd.Args = service.ParseCommandLine(req.Text)
	}
	if cmd.Name == "" && strings.TrimSpace(cmd.Text) == "" {
		response.Error(c, errcode.ErrInvalid, "empty message")
		return
	}
	response.Success(c, h.advisor.Handle(c.Request.Context(), cmd))
}

func (h *ChatHandler) Knowledge(c *gin.Context) {
	var req knowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	response.Success(c, h.advisor.AnswerFromKnowledgeBase(c.Request.Context(), req.Question, req.Filter, ""))
}
