package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/chat"
	"gorm.io/gorm"
)

// CreateMessage appends a message.
func (s *Store) CreateMessage(ctx context.Context, m *chat.Message) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// FindMessageByID retrieves a message by id.
func (s *Store) FindMessageByID(ctx context.Context, id string) (*chat.Message, error) {
	var m chat.Message
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("message %s", id)
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &m, nil
}

// FindMessagesBetween returns the conversation between a and b in both
// directions, oldest first. Messages with equal timestamps keep insertion
// order.
func (s *Store) FindMessagesBetween(ctx context.Context, a, b string) ([]chat.Message, error) {
	var messages []chat.Message
	if err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC, rowid ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	return messages, nil
}

// MarkMessageSeen flags one message as seen and reports whether it changed.
func (s *Store) MarkMessageSeen(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&chat.Message{}).
		Where("id = ? AND seen = ?", id, false).
		Update("seen", true)
	if err := result.Error; err != nil {
		return false, fmt.Errorf("failed to mark message seen: %w", err)
	}
	return result.RowsAffected > 0, nil
}

// MarkMessagesSeen flags every unseen message from sender to receiver and
// returns how many changed.
func (s *Store) MarkMessagesSeen(ctx context.Context, senderID, receiverID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&chat.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND seen = ?", senderID, receiverID, false).
		Update("seen", true)
	if err := result.Error; err != nil {
		return 0, fmt.Errorf("failed to mark messages seen: %w", err)
	}
	return result.RowsAffected, nil
}

// CountUnseenBySender counts the unseen messages addressed to receiverID,
// grouped by sender. Senders with nothing unseen are absent.
func (s *Store) CountUnseenBySender(ctx context.Context, receiverID string) (chat.UnseenCounts, error) {
	var rows []struct {
		SenderID string
		Count    int
	}
	if err := s.db.WithContext(ctx).
		Model(&chat.Message{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND seen = ?", receiverID, false).
		Group("sender_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count unseen messages: %w", err)
	}

	counts := make(chat.UnseenCounts, len(rows))
	for _, row := range rows {
		if row.Count > 0 {
			counts[row.SenderID] = row.Count
		}
	}
	return counts, nil
}
