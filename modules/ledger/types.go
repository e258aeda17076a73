package ledger

import (
	"context"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/chat"
)

// SendMessageRequest is the request for sending a direct message.
type SendMessageRequest struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
}

// MessageResponse carries one message or a domain failure.
type MessageResponse struct {
	Message *chat.Message   `json:"message,omitempty"`
	Failure *apperr.Failure `json:"failure,omitempty"`
}

// HistoryRequest is the request for a conversation history.
type HistoryRequest struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
}

// HistoryResponse is the response for a conversation history.
type HistoryResponse struct {
	Messages []chat.Message  `json:"messages"`
	Marked   int64           `json:"marked,omitempty"`
	Failure  *apperr.Failure `json:"failure,omitempty"`
}

// ConversationRequest addresses the conversation viewer has with counterpart.
type ConversationRequest struct {
	ViewerID      string `json:"viewer_id"`
	CounterpartID string `json:"counterpart_id"`
}

// MarkSeenRequest is the request for acknowledging one message.
type MarkSeenRequest struct {
	MessageID string `json:"message_id"`
	ViewerID  string `json:"viewer_id"`
}

// MarkAllSeenResponse is the response for acknowledging a conversation.
type MarkAllSeenResponse struct {
	Marked  int64           `json:"marked"`
	Failure *apperr.Failure `json:"failure,omitempty"`
}

// UnseenCountsRequest is the request for a viewer's unseen counts.
type UnseenCountsRequest struct {
	ViewerID string `json:"viewer_id"`
}

// UnseenCountsResponse is the response for a viewer's unseen counts.
type UnseenCountsResponse struct {
	Counts  chat.UnseenCounts `json:"counts"`
	Failure *apperr.Failure   `json:"failure,omitempty"`
}

// ChatPort defines the conversation operations exposed to request handlers.
type ChatPort interface {
	SendMessage(ctx context.Context, senderID, receiverID, text string) (*chat.Message, error)
	History(ctx context.Context, userA, userB string) ([]chat.Message, error)
	OpenConversation(ctx context.Context, viewerID, counterpartID string) ([]chat.Message, error)
	MarkSeen(ctx context.Context, messageID, viewerID string) (*chat.Message, error)
	MarkConversationSeen(ctx context.Context, viewerID, counterpartID string) (int64, error)
	UnseenCounts(ctx context.Context, viewerID string) (chat.UnseenCounts, error)
}
