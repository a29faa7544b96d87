package postgres

import (
	"FlashGrade/internal/core/domain"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestAdminAccountRepository_EmailIsUnique(t *testing.T) {
	nopLogger := zerolog.Nop()
	repo := NewAdminAccountRepository(testDB, &nopLogger)
	ctx := context.Background()

	email := uuid.NewString() + "@FlashGrade.test"
	a := &domain.AdminAccount{ID: uuid.New(), Email: email, PasswordHash: "x", Role: domain.RoleAdmin}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer cleanupAccount(t, a.ID)

	dup := &domain.AdminAccount{ID: uuid.New(), Email: email, PasswordHash: "y", Role: domain.RoleUser}
	if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrAccountExists) {
		t.Errorf("duplicate email: got %v, want ErrAccountExists", err)
	}

	found, err := repo.GetByEmail(ctx, email)
	if err != nil || found == nil || found.ID != a.ID || !found.IsAdmin() {
		t.Errorf("GetByEmail: %+v, %v", found, err)
	}
}

func TestTwoFactorRepositories(t *testing.T) {
	nopLogger := zerolog.Nop()
	accounts := NewAdminAccountRepository(testDB, &nopLogger)
	devices := NewTrustedDeviceRepository(testDB, &nopLogger)
	codes := NewTwoFactorCodeRepository(testDB, &nopLogger)
	ctx := context.Background()

	a := &domain.AdminAccount{ID: uuid.New(), Email: uuid.NewString() + "@flashgrade.test", PasswordHash: "x", Role: domain.RoleAdmin}
	if err := accounts.Create(ctx, a); err != nil {
		t.Fatalf("Create account: %v", err)
	}
	defer cleanupAccount(t, a.ID)

	now := time.Now().UTC().Truncate(time.Second)
	code := &domain.TwoFactorCode{ID: uuid.New(), AccountID: a.ID, Code: "123456", TelegramUserID: 1, DeviceID: "laptop", ExpiresAt: now.Add(10 * time.Minute)}
	if err := codes.Create(ctx, code); err != nil {
		t.Fatalf("Create code: %v", err)
	}

	if c, _ := codes.FindLatestUsable(ctx, a.ID, "phone", "123456", now); c != nil {
		t.Errorf("code must be bound to its device")
	}
	if c, _ := codes.FindLatestUsable(ctx, a.ID, "laptop", "123456", now.Add(11*time.Minute)); c != nil {
		t.Errorf("expired code must not be usable")
	}
	found, err := codes.FindLatestUsable(ctx, a.ID, "laptop", "123456", now)
	if err != nil || found == nil {
		t.Fatalf("FindLatestUsable: %v, %v", found, err)
	}
	if ok, _ := codes.MarkVerified(ctx, found.ID); !ok {
		t.Errorf("first MarkVerified should consume the code")
	}
	if ok, _ := codes.MarkVerified(ctx, found.ID); ok {
		t.Errorf("a code can be consumed only once")
	}

	if err := devices.Upsert(ctx, a.ID, "laptop", now); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := devices.Upsert(ctx, a.ID, "laptop", now.Add(time.Hour)); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	d, err := devices.Get(ctx, a.ID, "laptop")
	if err != nil || d == nil {
		t.Fatalf("Get device: %v, %v", d, err)
	}
	if !d.LastUsedAt.Equal(now.Add(time.Hour)) {
		t.Errorf("last_used_at: got %v, want %v", d.LastUsedAt, now.Add(time.Hour))
	}
	if err := devices.Touch(ctx, d.ID, now.Add(2*time.Hour)); err != nil {
		t.Errorf("Touch: %v", err)
	}
}
