package postgres

import (
	"FlashGrade/internal/core/domain"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestReferralRepository_CreateRejectsDuplicates(t *testing.T) {
	nopLogger := zerolog.Nop()
	repo := NewReferralRepository(testDB, &nopLogger)
	ctx := context.Background()
	a := createTestUser(t)
	b := createTestUser(t)

	code := newCode()
	if ok, err := repo.Create(ctx, &domain.ReferralCode{TelegramUserID: a.TelegramUserID, Code: code}); err != nil || !ok {
		t.Fatalf("Create: %v, %v", ok, err)
	}
	if ok, _ := repo.Create(ctx, &domain.ReferralCode{TelegramUserID: b.TelegramUserID, Code: code}); ok {
		t.Errorf("a taken code string must be rejected")
	}
	if ok, _ := repo.Create(ctx, &domain.ReferralCode{TelegramUserID: a.TelegramUserID, Code: newCode()}); ok {
		t.Errorf("a second code for the same user must be rejected")
	}
}

func TestReferralRepository_CreditCommissionOnce(t *testing.T) {
	nopLogger := zerolog.Nop()
	repo := NewReferralRepository(testDB, &nopLogger)
	orders := NewOrderRepository(testDB, &nopLogger)
	ctx := context.Background()
	referrer := createTestUser(t)
	referred := createTestUser(t)

	code := &domain.ReferralCode{TelegramUserID: referrer.TelegramUserID, Code: newCode()}
	if _, err := repo.Create(ctx, code); err != nil {
		t.Fatalf("Create: %v", err)
	}
	order := newTestOrder(referred.TelegramUserID, 0)
	if err := orders.PlaceOrder(ctx, order); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	usage := &domain.ReferralUsage{
		ID:               uuid.New(),
		OrderID:          order.ID,
		ReferrerID:       referrer.TelegramUserID,
		ReferredID:       referred.TelegramUserID,
		DiscountAmount:   16.5,
		CommissionAmount: 8.25,
		CommissionPaid:   true,
	}
	for i := 0; i < 2; i++ {
		usage.ID = uuid.New()
		credited, err := repo.CreditCommission(ctx, usage)
		if err != nil {
			t.Fatalf("CreditCommission #%d: %v", i+1, err)
		}
		if credited != (i == 0) {
			t.Errorf("CreditCommission #%d: credited=%v", i+1, credited)
		}
	}

	rc, _ := repo.GetByUser(ctx, referrer.TelegramUserID)
	if rc.AvailableBalance != 8.25 || rc.TotalEarnings != 8.25 || rc.ReferralsCount != 1 {
		t.Errorf("wallet after credit: %+v", rc)
	}
	if n, _ := repo.CountUsages(ctx, referrer.TelegramUserID); n != 1 {
		t.Errorf("CountUsages: got %d, want 1", n)
	}
}
