package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/user"
	"github.com/example/taskdesk/modules/presence"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Inbound command types.
const (
	CmdSendMessage          = "sendMessage"
	CmdMarkSeen             = "markSeen"
	CmdMarkConversationSeen = "markConversationSeen"
	CmdHistory              = "history"
	CmdUnseenCounts         = "unseenCounts"
	CmdPing                 = "ping"
)

// Reply events. Notifications pushed by the dispatcher use their own names.
const (
	EventMessageSent      = "messageSent"
	EventMessageSeen      = "messageSeen"
	EventConversationSeen = "conversationSeen"
	EventHistory          = "history"
	EventUnseenCounts     = "unseenCounts"
	EventPong             = "pong"
	EventError            = "error"
)

const commandTimeout = 10 * time.Second

// Command is an inbound WebSocket frame.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendMessagePayload is the payload of sendMessage.
type SendMessagePayload struct {
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
}

// MessageRefPayload is the payload of markSeen.
type MessageRefPayload struct {
	MessageID string `json:"message_id"`
}

// CounterpartPayload is the payload of history and markConversationSeen.
type CounterpartPayload struct {
	UserID string `json:"user_id"`
}

// frameWriter is the part of a WebSocket connection the writer needs.
type frameWriter interface {
	WriteJSON(v any) error
	Close() error
}

// wsClient is one live WebSocket connection. All writes go through the send
// queue and a single writer goroutine.
type wsClient struct {
	id     string
	userID string
	conn   frameWriter

	send       chan presence.Envelope
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
}

var _ presence.Conn = (*wsClient)(nil)

func newWSClient(userID string, conn frameWriter, buffer int) *wsClient {
	if buffer <= 0 {
		buffer = 1
	}
	return &wsClient{
		id:         uuid.New().String(),
		userID:     userID,
		conn:       conn,
		send:       make(chan presence.Envelope, buffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

// ID returns the connection id.
func (c *wsClient) ID() string {
	return c.id
}

// Send enqueues env without blocking. A full queue drops the frame.
func (c *wsClient) Send(env presence.Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// Close stops the writer and closes the socket. It is safe to call twice.
func (c *wsClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *wsClient) writePump() {
	defer close(c.writerDone)
	for {
		select {
		case env := <-c.send:
			if err := c.conn.WriteJSON(env); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// upgradeGuard rejects non-upgrade requests and unauthenticated sockets
// before the handshake completes.
func (m *APIModule) upgradeGuard(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		token, _ = strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	}
	if strings.TrimSpace(token) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Token is required",
		})
	}

	identity, err := m.accounts.ValidateToken(c.UserContext(), strings.TrimSpace(token))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
		})
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// handleWebSocket handles an authenticated WebSocket session at /ws.
func (m *APIModule) handleWebSocket(conn *websocket.Conn) {
	identity, _ := conn.Locals(identityKey).(user.Identity)
	client := newWSClient(identity.ID, conn, m.config.SendBuffer)
	limiter := m.newLimiter()

	go client.writePump()
	if prev := m.registry.Bind(identity.ID, client); prev != nil {
		_ = prev.Close()
	}
	m.logger.Info("WebSocket connected", "user_id", identity.ID, "conn_id", client.ID())

	defer func() {
		m.registry.Unbind(identity.ID, client.ID())
		_ = client.Close()
		// The connection is recycled once this handler returns.
		<-client.writerDone
		m.logger.Info("WebSocket disconnected", "user_id", identity.ID, "conn_id", client.ID())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Debug("WebSocket read error", "user_id", identity.ID, "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			client.Send(errorEnvelope("invalid_request", "Invalid message format"))
			continue
		}

		if !client.Send(m.handleCommand(identity, limiter, cmd)) {
			m.logger.Debug("WebSocket reply dropped", "user_id", identity.ID, "command", cmd.Type)
		}
	}
}

func (m *APIModule) newLimiter() *rate.Limiter {
	if m.config.MessagesPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(m.config.MessagesPerSecond), m.config.Burst)
}

// handleCommand runs one inbound command through the same ports the REST
// handlers use and returns the reply frame.
func (m *APIModule) handleCommand(identity user.Identity, limiter *rate.Limiter, cmd Command) presence.Envelope {
	if cmd.Type == CmdPing {
		return presence.Envelope{Event: EventPong, Payload: m.clock.Now().UTC()}
	}
	if !limiter.AllowN(m.clock.Now(), 1) {
		return errorEnvelope("rate_limited", "Rate limit exceeded, please slow down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Type {
	case CmdSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil || p.ReceiverID == "" {
			return errorEnvelope("invalid_request", "receiver_id and text are required")
		}
		msg, err := m.chat.SendMessage(ctx, identity.ID, p.ReceiverID, p.Text)
		if err != nil {
			return m.commandError(cmd, err)
		}
		return presence.Envelope{Event: EventMessageSent, Payload: msg}

	case CmdMarkSeen:
		var p MessageRefPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil || p.MessageID == "" {
			return errorEnvelope("invalid_request", "message_id is required")
		}
		msg, err := m.chat.MarkSeen(ctx, p.MessageID, identity.ID)
		if err != nil {
			return m.commandError(cmd, err)
		}
		return presence.Envelope{Event: EventMessageSeen, Payload: msg}

	case CmdMarkConversationSeen:
		var p CounterpartPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil || p.UserID == "" {
			return errorEnvelope("invalid_request", "user_id is required")
		}
		marked, err := m.chat.MarkConversationSeen(ctx, identity.ID, p.UserID)
		if err != nil {
			return m.commandError(cmd, err)
		}
		return presence.Envelope{Event: EventConversationSeen, Payload: MarkedResponse{With: p.UserID, Marked: marked}}

	case CmdHistory:
		var p CounterpartPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil || p.UserID == "" {
			return errorEnvelope("invalid_request", "user_id is required")
		}
		messages, err := m.chat.History(ctx, identity.ID, p.UserID)
		if err != nil {
			return m.commandError(cmd, err)
		}
		return presence.Envelope{Event: EventHistory, Payload: ConversationResponse{With: p.UserID, Messages: messages}}

	case CmdUnseenCounts:
		counts, err := m.chat.UnseenCounts(ctx, identity.ID)
		if err != nil {
			return m.commandError(cmd, err)
		}
		return presence.Envelope{Event: EventUnseenCounts, Payload: UnseenResponse{Counts: counts}}

	default:
		return errorEnvelope("invalid_request", "Unknown message type: "+cmd.Type)
	}
}

func (m *APIModule) commandError(cmd Command, err error) presence.Envelope {
	kind := apperr.KindOf(err)
	if kind == "" {
		m.logger.Error("WebSocket command failed", "command", cmd.Type, "error", err)
		return errorEnvelope("internal_error", "Internal Server Error")
	}
	return errorEnvelope(string(kind), err.Error())
}

func errorEnvelope(code, message string) presence.Envelope {
	return presence.Envelope{Event: EventError, Payload: ErrorResponse{Error: code, Message: message}}
}
