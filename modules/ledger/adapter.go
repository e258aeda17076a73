package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/taskdesk/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ledgerAdapter wraps ServiceContainer for type-safe cross-module communication.
type ledgerAdapter struct {
	container mono.ServiceContainer
}

// NewLedgerAdapter creates a ChatPort backed by the ledger module's services.
func NewLedgerAdapter(container mono.ServiceContainer) ChatPort {
	if container == nil {
		panic("ledger adapter requires non-nil ServiceContainer")
	}
	return &ledgerAdapter{container: container}
}

// call performs one request-reply round trip and decodes the reply into resp.
func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}

// SendMessage stores a message via the send service.
func (a *ledgerAdapter) SendMessage(ctx context.Context, senderID, receiverID, text string) (*chat.Message, error) {
	req := SendMessageRequest{SenderID: senderID, ReceiverID: receiverID, Text: text}
	var resp MessageResponse
	if err := call(ctx, a.container, "send", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Message, resp.Failure.Err()
}

// History fetches a conversation via the history service.
func (a *ledgerAdapter) History(ctx context.Context, userA, userB string) ([]chat.Message, error) {
	req := HistoryRequest{UserA: userA, UserB: userB}
	var resp HistoryResponse
	if err := call(ctx, a.container, "history", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, resp.Failure.Err()
}

// OpenConversation fetches a conversation and marks it seen via the open service.
func (a *ledgerAdapter) OpenConversation(ctx context.Context, viewerID, counterpartID string) ([]chat.Message, error) {
	req := ConversationRequest{ViewerID: viewerID, CounterpartID: counterpartID}
	var resp HistoryResponse
	if err := call(ctx, a.container, "open", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, resp.Failure.Err()
}

// MarkSeen acknowledges one message via the mark-seen service.
func (a *ledgerAdapter) MarkSeen(ctx context.Context, messageID, viewerID string) (*chat.Message, error) {
	req := MarkSeenRequest{MessageID: messageID, ViewerID: viewerID}
	var resp MessageResponse
	if err := call(ctx, a.container, "mark-seen", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Message, resp.Failure.Err()
}

// MarkConversationSeen acknowledges a conversation via the mark-all-seen service.
func (a *ledgerAdapter) MarkConversationSeen(ctx context.Context, viewerID, counterpartID string) (int64, error) {
	req := ConversationRequest{ViewerID: viewerID, CounterpartID: counterpartID}
	var resp MarkAllSeenResponse
	if err := call(ctx, a.container, "mark-all-seen", &req, &resp); err != nil {
		return 0, err
	}
	return resp.Marked, resp.Failure.Err()
}

// UnseenCounts fetches unseen counts via the unseen-counts service.
func (a *ledgerAdapter) UnseenCounts(ctx context.Context, viewerID string) (chat.UnseenCounts, error) {
	req := UnseenCountsRequest{ViewerID: viewerID}
	var resp UnseenCountsResponse
	if err := call(ctx, a.container, "unseen-counts", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Counts, resp.Failure.Err()
}
