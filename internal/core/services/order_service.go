package services

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/core/pricing"
	"FlashGrade/internal/shared/metrics"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sources recorded on order events.
const (
	SourceWizard = "wizard"
	SourceAdmin  = "admin"
	SourceRelay  = "relay"
	SourceAPI    = "api"
)

// OrderService creates orders and owns every status change, including the
// one path that marks an order paid and credits referral commission.
type OrderService struct {
	orders    ports.OrderRepository
	referrals *ReferralService
	bus       ports.EventBus
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewOrderService creates the order service.
func NewOrderService(
	orders ports.OrderRepository,
	referrals *ReferralService,
	bus ports.EventBus,
	m *metrics.Metrics,
	baseLogger *zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		referrals: referrals,
		bus:       bus,
		metrics:   m,
		log:       baseLogger.With().Str("component", "order_service").Logger(),
	}
}

// Quote is what the summary screen shows before confirmation.
type Quote struct {
	FinalPrice float64
	Wallet     float64
	AmountDue  float64
}

// Quote applies the customer's wallet to the draft's final price.
func (s *OrderService) Quote(ctx context.Context, telegramID int64, draft domain.OrderDraft) (Quote, error) {
	final := draft.FinalPrice()
	balance, err := s.referrals.Balance(ctx, telegramID)
	if err != nil {
		return Quote{}, err
	}
	wallet := pricing.WalletOffset(balance, final)
	return Quote{FinalPrice: final, Wallet: wallet, AmountDue: domain.RoundMoney(final - wallet)}, nil
}

// PlaceOrder turns a validated draft into a pending order and debits the wallet.
func (s *OrderService) PlaceOrder(ctx context.Context, user *domain.EndUser, draft domain.OrderDraft) (*domain.Order, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	subject := domain.InstructionFileSubject
	if draft.Subject != nil {
		subject = *draft.Subject
	}

	// The balance may have been spent between quote and insert, and a
	// random order number may collide. Each is retried once.
	var requoted, renumbered bool
	for {
		quote, err := s.Quote(ctx, user.TelegramUserID, draft)
		if err != nil {
			return nil, err
		}
		number, err := NewOrderNumber()
		if err != nil {
			return nil, fmt.Errorf("generate order number: %w", err)
		}

		order := &domain.Order{
			ID:                  uuid.New(),
			OrderNumber:         number,
			TelegramUserID:      user.TelegramUserID,
			TelegramUsername:    user.Username,
			Subject:             subject,
			InstructionFilePath: draft.InstructionFilePath,
			AcademicLevel:       *draft.Level,
			LengthPages:         *draft.Pages,
			Urgency:             *draft.Urgency,
			BasePrice:           draft.Pricing.BasePrice,
			UrgencyMultiplier:   draft.Pricing.UrgencyMultiplier,
			ReferralDiscount:    draft.ReferralDiscount,
			FinalPrice:          quote.FinalPrice,
			WalletAmountUsed:    quote.Wallet,
			UsedReferralCode:    draft.ReferralCode,
			SessionToken:        uuid.New(),
			Status:              domain.OrderStatusPending,
		}

		err = s.orders.PlaceOrder(ctx, order)
		if errors.Is(err, domain.ErrInsufficientBalance) && !requoted {
			requoted = true
			s.log.Warn().Int64("user_id", user.TelegramUserID).Msg("Wallet changed during checkout, re-quoting")
			continue
		}
		if errors.Is(err, domain.ErrOrderNumberTaken) && !renumbered {
			renumbered = true
			s.log.Warn().Str("order", number).Msg("Order number collision, regenerating")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("place order: %w", err)
		}

		if s.metrics != nil {
			s.metrics.OrdersCreated.Inc()
		}
		s.log.Info().
			Str("order", order.OrderNumber).
			Int64("user_id", order.TelegramUserID).
			Float64("final_price", order.FinalPrice).
			Float64("wallet", order.WalletAmountUsed).
			Msg("Order placed")
		s.publish(ctx, ports.TopicOrderCreated, order, "", SourceWizard)
		return order, nil
	}
}

// Get finds an order by ID or number. Missing orders yield domain.ErrOrderNotFound.
func (s *OrderService) Get(ctx context.Context, ref domain.OrderRef) (*domain.Order, error) {
	var (
		order *domain.Order
		err   error
	)
	switch {
	case ref.ID != nil:
		order, err = s.orders.GetByID(ctx, *ref.ID)
	case ref.OrderNumber != "":
		order, err = s.orders.GetByNumber(ctx, ref.OrderNumber)
	default:
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// List returns orders matching filter, newest first.
func (s *OrderService) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	return s.orders.List(ctx, filter)
}

// MarkPaid moves a pending order to paid, stores the proof path and credits
// referral commission exactly once. Calling it on an order that is already
// paid (or further along) changes nothing but still settles a commission
// that an earlier attempt failed to credit.
func (s *OrderService) MarkPaid(ctx context.Context, ref domain.OrderRef, proofPath *string, source string) (*domain.Order, error) {
	order, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: order %s is cancelled", domain.ErrInvalidStatusTransition, order.OrderNumber)
	}

	changed := false
	if order.Status == domain.OrderStatusPending {
		changed, err = s.orders.MarkPaid(ctx, order.ID, proofPath)
		if err != nil {
			return nil, fmt.Errorf("mark paid: %w", err)
		}
		if order, err = s.Get(ctx, domain.OrderRef{ID: &order.ID}); err != nil {
			return nil, err
		}
		if !changed && !order.Status.AtLeastPaid() {
			return nil, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidStatusTransition, order.OrderNumber, order.Status)
		}
	}

	if _, err := s.referrals.CreditCommission(ctx, order); err != nil {
		return nil, err
	}

	if changed {
		if s.metrics != nil {
			s.metrics.OrdersPaid.WithLabelValues(source).Inc()
		}
		s.log.Info().Str("order", order.OrderNumber).Str("source", source).Msg("Order marked paid")
		s.publish(ctx, ports.TopicOrderPaid, order, domain.OrderStatusPending, source)
	}
	return order, nil
}

// UpdateStatus applies an admin status change. Moving a pending order to
// paid or beyond goes through MarkPaid first so commission is credited.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus, source string) (*domain.Order, error) {
	order, err := s.Get(ctx, domain.OrderRef{ID: &id})
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, order.Status, to)
	}

	if order.Status == domain.OrderStatusPending && to.AtLeastPaid() {
		if order, err = s.MarkPaid(ctx, domain.OrderRef{ID: &id}, nil, source); err != nil {
			return nil, err
		}
		if order.Status == to {
			return order, nil
		}
	}

	prev := order.Status
	ok, err := s.orders.UpdateStatus(ctx, id, prev, to)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order %s changed concurrently", domain.ErrInvalidStatusTransition, order.OrderNumber)
	}
	order.Status = to

	s.log.Info().Str("order", order.OrderNumber).Str("from", string(prev)).Str("to", string(to)).Msg("Order status updated")
	s.publish(ctx, ports.TopicOrderStatusChanged, order, prev, source)
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, topic string, order *domain.Order, prev domain.OrderStatus, source string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, topic, ports.OrderEvent{Order: order, PrevStatus: prev, Source: source}); err != nil {
		s.log.Error().Err(err).Str("topic", topic).Msg("Failed to publish order event")
	}
}
