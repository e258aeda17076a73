package chat

import "time"

// Message is a direct message between two users.
type Message struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	SenderID   string    `gorm:"size:36;not null;index:idx_messages_pair,priority:1" json:"sender_id"`
	ReceiverID string    `gorm:"size:36;not null;index:idx_messages_pair,priority:2;index:idx_messages_unseen,priority:1" json:"receiver_id"`
	Text       string    `gorm:"not null" json:"text"`
	Seen       bool      `gorm:"not null;default:false;index:idx_messages_unseen,priority:2" json:"seen"`
	CreatedAt  time.Time `gorm:"index:idx_messages_pair,priority:3" json:"created_at"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "messages"
}

// UnseenCounts maps a counterpart id to the number of messages the viewer
// has not seen yet. Counterparts with nothing unseen are absent.
type UnseenCounts map[string]int
