package tenant

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/kerm1977/altair/internal/model"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openRaw(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenant.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db := openRaw(t)

	if err := EnsureSchema(db); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	member := model.Member{Nombre: "Ana", Pin: "111"}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("insert after double ensure: %v", err)
	}
}

func TestEnsureSchemaPatchesLegacyTables(t *testing.T) {
	db := openRaw(t)

	// Shape of a tenant file written before the private-chat revision:
	// user lacks username/member_id, chat_message has a single pin column
	// and no read tracking.
	ddl := []string{
		`CREATE TABLE user (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email VARCHAR(150) UNIQUE NOT NULL,
			password VARCHAR(200) NOT NULL,
			is_superuser NUMERIC DEFAULT 0
		)`,
		`CREATE TABLE chat_message (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nombre TEXT,
			pin TEXT,
			texto TEXT,
			file_path TEXT,
			file_type TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create legacy table: %v", err)
		}
	}
	err := db.Exec(
		"INSERT INTO chat_message (nombre, pin, texto) VALUES (?, ?, ?)",
		"Ana", "111", "hola",
	).Error
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	if err := EnsureSchema(db); err != nil {
		t.Fatalf("ensure on legacy file: %v", err)
	}

	m := db.Migrator()
	for _, col := range []string{"sender_pin", "receiver_pin", "is_read"} {
		if !m.HasColumn(&model.ChatMessage{}, col) {
			t.Errorf("chat_message missing patched column %q", col)
		}
	}
	for _, col := range []string{"username", "member_id"} {
		if !m.HasColumn(&model.User{}, col) {
			t.Errorf("user missing patched column %q", col)
		}
	}

	var msg model.ChatMessage
	if err := db.First(&msg).Error; err != nil {
		t.Fatalf("read patched row: %v", err)
	}
	if msg.SenderPin != "111" {
		t.Errorf("sender_pin backfill = %q, want %q", msg.SenderPin, "111")
	}
	if msg.IsRead {
		t.Error("patched row should start unread")
	}

	// The backfill must not rewrite rows on later passes even if the
	// legacy column drifts.
	if err := db.Exec("UPDATE chat_message SET pin = '555'").Error; err != nil {
		t.Fatalf("mutate legacy pin: %v", err)
	}
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("re-ensure on legacy file: %v", err)
	}

	var count int64
	if err := db.Model(&model.ChatMessage{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after re-ensure, got %d", count)
	}
	if err := db.First(&msg).Error; err != nil {
		t.Fatalf("re-read row: %v", err)
	}
	if msg.SenderPin != "111" {
		t.Errorf("sender_pin changed to %q on second pass", msg.SenderPin)
	}
}
