package postgres

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/migrations"
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var testDB *DB

// TestMain connects to TEST_DATABASE_URL and applies the migrations. The
// package is skipped when no database is configured.
func TestMain(m *testing.M) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		fmt.Println("TEST_DATABASE_URL not set, skipping postgres tests")
		os.Exit(0)
	}

	nopLogger := zerolog.Nop()
	ctx := context.Background()

	var err error
	testDB, err = NewDB(ctx, url, &nopLogger)
	if err != nil {
		log.Fatalf("TestMain: Failed to connect to test database: %v", err)
	}
	if err := testDB.ApplyMigrations(ctx, migrations.Files); err != nil {
		log.Fatalf("TestMain: Failed to apply migrations: %v", err)
	}

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

var telegramSeq atomic.Int64

// newTelegramID returns an id no other test uses.
func newTelegramID() int64 {
	return time.Now().UnixNano()/1000 + telegramSeq.Add(1)
}

// createTestUser touches a fresh end user and removes it afterwards.
func createTestUser(t *testing.T) *domain.EndUser {
	t.Helper()
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, &nopLogger)
	user, err := repo.Touch(t.Context(), domain.UserProfile{
		TelegramUserID: newTelegramID(),
		Username:       "test_user",
		FirstName:      "Test",
	})
	if err != nil {
		t.Fatalf("createTestUser failed: %v", err)
	}
	t.Cleanup(func() { cleanupUser(t, user.TelegramUserID) })
	return user
}

// cleanupUser removes every row keyed by the telegram id.
func cleanupUser(t *testing.T, telegramID int64) {
	ctx := context.Background()
	for _, q := range []string{
		"DELETE FROM referral_usage WHERE referrer_telegram_user_id = $1 OR referred_telegram_user_id = $1",
		"DELETE FROM orders WHERE telegram_user_id = $1",
		"DELETE FROM referral_codes WHERE telegram_user_id = $1",
		"DELETE FROM support_messages WHERE telegram_user_id = $1",
		"DELETE FROM conversation_state WHERE telegram_user_id = $1",
		"DELETE FROM end_users WHERE telegram_user_id = $1",
	} {
		if _, err := testDB.pool.Exec(ctx, q, telegramID); err != nil {
			t.Logf("Warning: cleanup for user %d failed: %v", telegramID, err)
		}
	}
}

func cleanupAccount(t *testing.T, id uuid.UUID) {
	if _, err := testDB.pool.Exec(context.Background(), "DELETE FROM admin_accounts WHERE id = $1", id); err != nil {
		t.Logf("Warning: Failed to cleanup account %s: %v", id, err)
	}
}

func ptr[T any](v T) *T { return &v }
