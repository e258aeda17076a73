package events

import (
	"time"

	"github.com/example/taskdesk/domain/chat"
	"github.com/go-monolith/mono/pkg/helper"
)

// MessageSentEvent is emitted when a direct message has been stored.
type MessageSentEvent struct {
	Target    string       `json:"target"`
	Message   chat.Message `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)
)
