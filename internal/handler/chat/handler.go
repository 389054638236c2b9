package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/law-agent/backend/internal/model/chat"
	"github.com/zhouzirui/law-agent/backend/internal/service/conversation"
	"github.com/zhouzirui/law-agent/backend/pkg/utils"
)

// resetAll 是重置全部会话的保留 session_id。
const resetAll = "all"

// Conversation 抽象对话编排器，便于测试替换。
type Conversation interface {
	Chat(ctx context.Context, req conversation.Request) (conversation.Reply, error)
	ResolveSessionID(id string) string
}

// SessionStore 抽象会话存储中 handler 需要的部分。
type SessionStore interface {
	Snapshot(ctx context.Context, id string) (chat.History, bool)
	Reset(ctx context.Context, id string) int
	ResetAll(ctx context.Context) (sessions, messages int)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	conversation Conversation
	sessions     SessionStore
}

// New 创建聊天处理器
func New(conv Conversation, sessions SessionStore) *Handler {
	return &Handler{
		conversation: conv,
		sessions:     sessions,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/chat/reset", h.handleReset)
	r.Get("/chat/history/{sessionID}", h.handleHistory)
}

type chatRequest struct {
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	SessionID string `json:"session_id"`
}

// handleChat 处理一轮对话
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.conversation.Chat(r.Context(), conversation.Request{
		Message:   payload.Message,
		Sender:    payload.Sender,
		SessionID: payload.SessionID,
	})
	if err != nil {
		if errors.Is(err, conversation.ErrMessageRequired) {
			utils.RespondError(w, http.StatusBadRequest, "message is required")
			return
		}
		log.Printf("[chat] unexpected error: %v", err)
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

type statusResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// handleReset 重置单个会话或全部会话
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"session_id"`
	}
	// 允许空请求体，此时重置默认会话。
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	var message string
	if strings.EqualFold(strings.TrimSpace(payload.SessionID), resetAll) {
		sessions, messages := h.sessions.ResetAll(ctx)
		message = fmt.Sprintf("All conversation sessions reset (%d sessions, %d messages cleared)", sessions, messages)
	} else {
		sessionID := h.conversation.ResolveSessionID(payload.SessionID)
		cleared := h.sessions.Reset(ctx, sessionID)
		if cleared == 0 {
			message = fmt.Sprintf("Session %s had no conversation history to reset", sessionID)
		} else {
			message = fmt.Sprintf("Session %s reset (%d messages cleared)", sessionID, cleared)
		}
	}

	log.Printf("[chat] %s", message)
	utils.RespondJSON(w, http.StatusOK, statusResponse{Message: message, Timestamp: time.Now().UTC()})
}

type historyResponse struct {
	SessionID    string         `json:"session_id" yaml:"session_id"`
	Messages     []chat.Message `json:"messages" yaml:"messages"`
	CreatedAt    *time.Time     `json:"created_at" yaml:"created_at"`
	MessageCount int            `json:"message_count" yaml:"message_count"`
	Message      string         `json:"message,omitempty" yaml:"message,omitempty"`
}

// handleHistory 返回会话历史，未知会话返回空列表而非错误
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	history, ok := h.sessions.Snapshot(r.Context(), sessionID)

	resp := historyResponse{
		SessionID:    sessionID,
		Messages:     history.Messages,
		MessageCount: len(history.Messages),
	}
	if ok {
		createdAt := history.CreatedAt
		resp.CreatedAt = &createdAt
	} else {
		resp.Message = "Session not found"
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
		utils.RespondYAML(w, http.StatusOK, resp)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}
