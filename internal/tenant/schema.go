package tenant

import (
	"fmt"

	"github.com/kerm1977/altair/internal/model"
	"gorm.io/gorm"
)

// EnsureSchema brings a tenant database to the current schema shape. It
// is safe to run on every provisioning pass: tables are created only if
// absent and columns added in later revisions (username and member_id on
// user, sender_pin, receiver_pin and is_read on chat_message) are patched
// in via schema introspection rather than attempt-and-ignore ALTERs.
func EnsureSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Member{},
		&model.Event{},
		&model.ChatMessage{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	return backfillSenderPin(db)
}

// backfillSenderPin copies the legacy single-party pin column into
// sender_pin for rows the patch left unset. Effectively runs once: after
// the first pass no row has an unset sender_pin.
func backfillSenderPin(db *gorm.DB) error {
	if !db.Migrator().HasColumn(&model.ChatMessage{}, "pin") {
		return nil
	}

	err := db.Exec(
		"UPDATE chat_message SET sender_pin = pin WHERE sender_pin IS NULL OR sender_pin = ''",
	).Error
	if err != nil {
		return fmt.Errorf("backfill sender_pin: %w", err)
	}
	return nil
}
