package store

import (
	"fmt"
	"time"

	"github.com/kerm1977/altair/internal/model"
	"gorm.io/gorm"
)

// DefaultPageLimit bounds a conversation fetch when the caller passes no
// usable limit.
const DefaultPageLimit = 50

// SendMessage stores a new unread message and stamps it with the server
// clock in UTC.
func SendMessage(db *gorm.DB, msg *model.ChatMessage) error {
	msg.IsRead = false
	msg.CreatedAt = time.Now().UTC().Format(model.TimeLayout)
	if err := withBusyRetry(func() error { return db.Create(msg).Error }); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Conversation returns the most recent messages between the two pins in
// chronological ascending order. As a side effect it first marks as read
// every unread message the caller received from the other pin, so the
// returned page reflects post-mark state. Membership is symmetric: both
// directions of the pair are included.
func Conversation(db *gorm.DB, minePin, otherPin string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	var msgs []model.ChatMessage
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ChatMessage{}).
			Where("receiver_pin = ? AND sender_pin = ? AND is_read = ?", minePin, otherPin, false).
			Update("is_read", true).Error; err != nil {
			return err
		}

		return tx.
			Where("(sender_pin = ? AND receiver_pin = ?) OR (sender_pin = ? AND receiver_pin = ?)",
				minePin, otherPin, otherPin, minePin).
			Order("id DESC").
			Limit(limit).
			Find(&msgs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}

	// Most-recent-first page, reversed for chronological display.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// UnreadTotal counts unread messages addressed to the pin across all
// senders. Degrades to 0 when the chat table does not exist yet or the
// count fails; a missing badge must not break the caller.
func UnreadTotal(db *gorm.DB, minePin string) int64 {
	if !db.Migrator().HasTable(&model.ChatMessage{}) {
		return 0
	}

	var n int64
	err := db.Model(&model.ChatMessage{}).
		Where("receiver_pin = ? AND is_read = ?", minePin, false).
		Count(&n).Error
	if err != nil {
		return 0
	}
	return n
}

// UnreadFrom counts unread messages addressed to the pin from one
// specific sender, with the same graceful degradation as UnreadTotal.
func UnreadFrom(db *gorm.DB, minePin, senderPin string) int64 {
	if !db.Migrator().HasTable(&model.ChatMessage{}) {
		return 0
	}

	var n int64
	err := db.Model(&model.ChatMessage{}).
		Where("receiver_pin = ? AND sender_pin = ? AND is_read = ?", minePin, senderPin, false).
		Count(&n).Error
	if err != nil {
		return 0
	}
	return n
}

// DeleteMessage hard-deletes one message by id. Authorization is the
// caller's responsibility; deleting an unknown id is a no-op.
func DeleteMessage(db *gorm.DB, id uint) error {
	err := withBusyRetry(func() error {
		return db.Delete(&model.ChatMessage{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete message %d: %w", id, err)
	}
	return nil
}

// ClearConversation hard-deletes every message of the symmetric pair.
func ClearConversation(db *gorm.DB, minePin, otherPin string) error {
	err := withBusyRetry(func() error {
		return db.
			Where("(sender_pin = ? AND receiver_pin = ?) OR (sender_pin = ? AND receiver_pin = ?)",
				minePin, otherPin, otherPin, minePin).
			Delete(&model.ChatMessage{}).Error
	})
	if err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}

// TimeLabels derives the short time-of-day and long date-time display
// labels from a stored timestamp. When the stored value does not match
// the expected layout, it falls back to substring slicing instead of
// failing the whole response.
func TimeLabels(raw string) (fecha, fechaLarga string) {
	if t, err := time.Parse(model.TimeLayout, raw); err == nil {
		return t.Format("15:04"), t.Format("02/01/2006 15:04")
	}
	if len(raw) >= 8 {
		return raw[len(raw)-8 : len(raw)-3], raw
	}
	return raw, raw
}
