package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/jonboulle/clockwork"
)

// LedgerModule exposes the conversation ledger as request-reply services and
// emits an event for every stored message.
type LedgerModule struct {
	ledger   *Ledger
	clock    clockwork.Clock
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*LedgerModule)(nil)
var _ mono.ServiceProviderModule = (*LedgerModule)(nil)
var _ mono.EventBusAwareModule = (*LedgerModule)(nil)
var _ mono.EventEmitterModule = (*LedgerModule)(nil)
var _ mono.EventConsumerModule = (*LedgerModule)(nil)

// NewModule creates a new LedgerModule. cache may be nil.
func NewModule(store MessageStore, cache CountCache, clock clockwork.Clock, logger types.Logger) *LedgerModule {
	return &LedgerModule{
		ledger: New(store, cache, clock, logger),
		clock:  clock,
		logger: logger,
	}
}

// Name returns the module name.
func (m *LedgerModule) Name() string {
	return "ledger"
}

// SetEventBus is called by the framework to inject the event bus.
func (m *LedgerModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *LedgerModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
	}
}

// RegisterEventConsumers registers event handlers.
func (m *LedgerModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.EmployeeDeletedV1, m.handleEmployeeDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register EmployeeDeleted consumer: %w", err)
	}
	return nil
}

func (m *LedgerModule) handleEmployeeDeleted(ctx context.Context, event events.EmployeeDeletedEvent, _ *mono.Msg) error {
	m.logger.Info("Resetting unseen counts after employee removal", "employee_id", event.EmployeeID)
	m.ledger.Reset(ctx)
	return nil
}

// RegisterServices registers request-reply services in the service container.
func (m *LedgerModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "send", json.Unmarshal, json.Marshal, m.send,
	); err != nil {
		return fmt.Errorf("failed to register send service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "history", json.Unmarshal, json.Marshal, m.history,
	); err != nil {
		return fmt.Errorf("failed to register history service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "open", json.Unmarshal, json.Marshal, m.open,
	); err != nil {
		return fmt.Errorf("failed to register open service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "mark-seen", json.Unmarshal, json.Marshal, m.markSeen,
	); err != nil {
		return fmt.Errorf("failed to register mark-seen service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "mark-all-seen", json.Unmarshal, json.Marshal, m.markAllSeen,
	); err != nil {
		return fmt.Errorf("failed to register mark-all-seen service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "unseen-counts", json.Unmarshal, json.Marshal, m.unseenCounts,
	); err != nil {
		return fmt.Errorf("failed to register unseen-counts service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", "services.ledger.{send,history,open,mark-seen,mark-all-seen,unseen-counts}")
	return nil
}

// Start initializes the module.
func (m *LedgerModule) Start(_ context.Context) error {
	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, message notifications will not be published")
	}
	m.logger.Info("Ledger module started")
	return nil
}

// Stop shuts down the module.
func (m *LedgerModule) Stop(_ context.Context) error {
	m.logger.Info("Ledger module stopped")
	return nil
}

func (m *LedgerModule) send(ctx context.Context, req SendMessageRequest, _ *mono.Msg) (MessageResponse, error) {
	msg, notice, err := m.ledger.Send(ctx, req.SenderID, req.ReceiverID, req.Text)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return MessageResponse{Failure: failure}, internal
	}

	if m.eventBus != nil {
		event := events.MessageSentEvent{
			Target:    notice.Target,
			Message:   *msg,
			Timestamp: m.clock.Now().UTC(),
		}
		if err := events.MessageSentV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish MessageSent event", "message_id", msg.ID, "error", err)
		}
	}
	return MessageResponse{Message: msg}, nil
}

func (m *LedgerModule) history(ctx context.Context, req HistoryRequest, _ *mono.Msg) (HistoryResponse, error) {
	messages, err := m.ledger.History(ctx, req.UserA, req.UserB)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return HistoryResponse{Failure: failure}, internal
	}
	return HistoryResponse{Messages: messages}, nil
}

func (m *LedgerModule) open(ctx context.Context, req ConversationRequest, _ *mono.Msg) (HistoryResponse, error) {
	messages, marked, err := m.ledger.OpenConversation(ctx, req.ViewerID, req.CounterpartID)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return HistoryResponse{Failure: failure}, internal
	}
	return HistoryResponse{Messages: messages, Marked: marked}, nil
}

func (m *LedgerModule) markSeen(ctx context.Context, req MarkSeenRequest, _ *mono.Msg) (MessageResponse, error) {
	msg, err := m.ledger.MarkSeen(ctx, req.MessageID, req.ViewerID)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return MessageResponse{Failure: failure}, internal
	}
	return MessageResponse{Message: msg}, nil
}

func (m *LedgerModule) markAllSeen(ctx context.Context, req ConversationRequest, _ *mono.Msg) (MarkAllSeenResponse, error) {
	marked, err := m.ledger.MarkAllSeenFrom(ctx, req.CounterpartID, req.ViewerID)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return MarkAllSeenResponse{Failure: failure}, internal
	}
	return MarkAllSeenResponse{Marked: marked}, nil
}

func (m *LedgerModule) unseenCounts(ctx context.Context, req UnseenCountsRequest, _ *mono.Msg) (UnseenCountsResponse, error) {
	counts, err := m.ledger.UnseenCounts(ctx, req.ViewerID)
	if err != nil {
		failure, internal := apperr.ToFailure(err)
		return UnseenCountsResponse{Failure: failure}, internal
	}
	return UnseenCountsResponse{Counts: counts}, nil
}
