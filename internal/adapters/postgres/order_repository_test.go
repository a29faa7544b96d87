package postgres

import (
	"FlashGrade/internal/core/domain"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestOrder(telegramID int64, wallet float64) *domain.Order {
	return &domain.Order{
		ID:                uuid.New(),
		OrderNumber:       "ME-" + strings.ToUpper(uuid.NewString()[:8]),
		TelegramUserID:    telegramID,
		Subject:           "Marketing digital",
		AcademicLevel:     domain.LevelUniversity,
		LengthPages:       5,
		Urgency:           domain.UrgencyTwentyFourHours,
		BasePrice:         110,
		UrgencyMultiplier: 1.5,
		FinalPrice:        165,
		WalletAmountUsed:  wallet,
		SessionToken:      uuid.New(),
		Status:            domain.OrderStatusPending,
	}
}

func TestOrderRepository_PlaceOrderDebitsWallet(t *testing.T) {
	nopLogger := zerolog.Nop()
	orders := NewOrderRepository(testDB, &nopLogger)
	referrals := NewReferralRepository(testDB, &nopLogger)
	ctx := context.Background()
	user := createTestUser(t)

	code := &domain.ReferralCode{TelegramUserID: user.TelegramUserID, Code: newCode()}
	if ok, err := referrals.Create(ctx, code); err != nil || !ok {
		t.Fatalf("Create code: %v, %v", ok, err)
	}
	if _, err := testDB.pool.Exec(ctx, "UPDATE referral_codes SET available_balance = 20 WHERE telegram_user_id = $1", user.TelegramUserID); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	order := newTestOrder(user.TelegramUserID, 15)
	if err := orders.PlaceOrder(ctx, order); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	rc, _ := referrals.GetByUser(ctx, user.TelegramUserID)
	if rc.AvailableBalance != 5 {
		t.Errorf("balance after debit: got %v, want 5", rc.AvailableBalance)
	}

	tooMuch := newTestOrder(user.TelegramUserID, 15)
	if err := orders.PlaceOrder(ctx, tooMuch); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("overdraft: got %v, want ErrInsufficientBalance", err)
	}
	if got, _ := orders.GetByID(ctx, tooMuch.ID); got != nil {
		t.Errorf("order must not be stored when the debit fails")
	}

	duplicate := newTestOrder(user.TelegramUserID, 5)
	duplicate.OrderNumber = order.OrderNumber
	if err := orders.PlaceOrder(ctx, duplicate); !errors.Is(err, domain.ErrOrderNumberTaken) {
		t.Errorf("duplicate number: got %v, want ErrOrderNumberTaken", err)
	}
	if rc, _ := referrals.GetByUser(ctx, user.TelegramUserID); rc.AvailableBalance != 5 {
		t.Errorf("debit must roll back on duplicate number, balance %v", rc.AvailableBalance)
	}

	found, err := orders.GetByNumber(ctx, order.OrderNumber)
	if err != nil || found == nil {
		t.Fatalf("GetByNumber: %v, %v", found, err)
	}
	if found.FinalPrice != 165 || found.WalletAmountUsed != 15 || found.Status != domain.OrderStatusPending {
		t.Errorf("roundtrip mismatch: %+v", found)
	}
}

func TestOrderRepository_StatusTransitions(t *testing.T) {
	nopLogger := zerolog.Nop()
	orders := NewOrderRepository(testDB, &nopLogger)
	ctx := context.Background()
	user := createTestUser(t)

	order := newTestOrder(user.TelegramUserID, 0)
	if err := orders.PlaceOrder(ctx, order); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	changed, err := orders.MarkPaid(ctx, order.ID, ptr("payment-proofs/1/x.jpg"))
	if err != nil || !changed {
		t.Fatalf("MarkPaid: %v, %v", changed, err)
	}
	changed, err = orders.MarkPaid(ctx, order.ID, nil)
	if err != nil || changed {
		t.Errorf("second MarkPaid should be a no-op: %v, %v", changed, err)
	}

	if ok, _ := orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusInProgress); ok {
		t.Errorf("update from a stale status must not apply")
	}
	if ok, err := orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPaid, domain.OrderStatusInProgress); err != nil || !ok {
		t.Errorf("UpdateStatus: %v, %v", ok, err)
	}

	status := domain.OrderStatusInProgress
	list, err := orders.List(ctx, domain.OrderFilter{Status: &status, TelegramUserID: &user.TelegramUserID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || *list[0].PaymentProofPath != "payment-proofs/1/x.jpg" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func newCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
