// Package ws exposes the chat turn over a websocket: every inbound chat frame
// gets exactly one reply frame, so clients can keep a connection open instead
// of issuing one POST per question.
package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/law-agent/backend/internal/service/conversation"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Conversation 抽象对话编排器。
type Conversation interface {
	Chat(ctx context.Context, req conversation.Request) (conversation.Reply, error)
}

// Handler WebSocket聊天处理器
type Handler struct {
	conversation Conversation
	upgrader     websocket.Upgrader
}

// New 创建WebSocket处理器
func New(conv Conversation) *Handler {
	return &Handler{
		conversation: conv,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	SessionID string `json:"session_id"`
}

type outgoingMessage struct {
	Type      string     `json:"type"`
	Response  string     `json:"response,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection from %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, conn)

	for {
		// 一轮对话可能超过读超时，因此每次读取前重新设置。
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		if err := h.handleMessage(ctx, conn, &msg); err != nil {
			log.Printf("[websocket] write failed: %v", err)
			return
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, msg *inboundMessage) error {
	switch msg.Type {
	case "chat", "":
	default:
		return h.write(conn, outgoingMessage{Type: "error", Error: "unsupported message type: " + msg.Type})
	}

	reply, err := h.conversation.Chat(ctx, conversation.Request{
		Message:   msg.Message,
		Sender:    msg.Sender,
		SessionID: msg.SessionID,
	})
	if err != nil {
		text := err.Error()
		if errors.Is(err, conversation.ErrMessageRequired) {
			text = "message is required"
		}
		return h.write(conn, outgoingMessage{Type: "error", Error: text, SessionID: msg.SessionID})
	}

	return h.write(conn, outgoingMessage{
		Type:      "reply",
		Response:  reply.Response,
		SessionID: reply.SessionID,
		Timestamp: &reply.Timestamp,
	})
}

func (h *Handler) write(conn *websocket.Conn, msg outgoingMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

// pingLoop 只发送控制帧，WriteControl 可以与读循环中的 WriteJSON 并发调用。
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
