package postgres

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const defaultOrderListLimit = 100

type orderRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.OrderRepository = (*orderRepository)(nil)

// NewOrderRepository creates a new repository for orders.
func NewOrderRepository(db *DB, baseLogger *zerolog.Logger) ports.OrderRepository {
	return &orderRepository{
		db:  db,
		log: baseLogger.With().Str("component", "order_repo").Logger(),
	}
}

const orderQueryCols = `
	id, order_number, telegram_user_id, telegram_username, subject,
	instruction_file_path, academic_level, length_pages, urgency,
	base_price, urgency_multiplier, referral_discount, final_price,
	wallet_amount_used, used_referral_code, session_token,
	payment_proof_path, status, created_at, updated_at
`

// PlaceOrder debits the wallet and inserts the order in one transaction.
// The debit only succeeds while the balance still covers it. A duplicate
// order number rolls the debit back and yields domain.ErrOrderNumberTaken.
func (r *orderRepository) PlaceOrder(ctx context.Context, o *domain.Order) error {
	err := pgx.BeginFunc(ctx, r.db.pool, func(tx pgx.Tx) error {
		if o.WalletAmountUsed > 0 {
			tag, err := tx.Exec(ctx, `
				UPDATE referral_codes
				SET available_balance = available_balance - $2
				WHERE telegram_user_id = $1 AND available_balance >= $2`,
				o.TelegramUserID, o.WalletAmountUsed,
			)
			if err != nil {
				return fmt.Errorf("debit wallet: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrInsufficientBalance
			}
		}

		return tx.QueryRow(ctx, `
			INSERT INTO orders (
				id, order_number, telegram_user_id, telegram_username, subject,
				instruction_file_path, academic_level, length_pages, urgency,
				base_price, urgency_multiplier, referral_discount, final_price,
				wallet_amount_used, used_referral_code, session_token, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING created_at, updated_at`,
			o.ID,
			o.OrderNumber,
			o.TelegramUserID,
			o.TelegramUsername,
			o.Subject,
			o.InstructionFilePath,
			string(o.AcademicLevel),
			o.LengthPages,
			string(o.Urgency),
			o.BasePrice,
			o.UrgencyMultiplier,
			o.ReferralDiscount,
			o.FinalPrice,
			o.WalletAmountUsed,
			o.UsedReferralCode,
			o.SessionToken,
			string(o.Status),
		).Scan(&o.CreatedAt, &o.UpdatedAt)
	})
	if violatesUnique(err, "orders_order_number_key") {
		return domain.ErrOrderNumberTaken
	}
	if err != nil && !errors.Is(err, domain.ErrInsufficientBalance) {
		r.log.Error().Err(err).Str("order", o.OrderNumber).Msg("Failed to place order")
	}
	return err
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderQueryCols+` FROM orders WHERE id = $1`, id)
}

func (r *orderRepository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderQueryCols+` FROM orders WHERE order_number = $1`, strings.ToUpper(orderNumber))
}

// List returns orders newest first.
func (r *orderRepository) List(ctx context.Context, f domain.OrderFilter) ([]*domain.Order, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Status != nil {
		where = append(where, "status = "+arg(string(*f.Status)))
	}
	if f.TelegramUserID != nil {
		where = append(where, "telegram_user_id = "+arg(*f.TelegramUserID))
	}
	if f.Since != nil {
		where = append(where, "created_at >= "+arg(*f.Since))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultOrderListLimit
	}

	query := `SELECT ` + orderQueryCols + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT ` + arg(limit)

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list orders")
		return nil, err
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	tag, err := r.db.pool.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		r.log.Error().Err(err).Str("order_id", id.String()).Msg("Failed to update order status")
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkPaid keeps an existing proof path when proofPath is nil.
func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID, proofPath *string) (bool, error) {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE orders SET
			status = 'paid',
			payment_proof_path = COALESCE($2, payment_proof_path),
			updated_at = now()
		WHERE id = $1 AND status = 'pending'`,
		id, proofPath,
	)
	if err != nil {
		r.log.Error().Err(err).Str("order_id", id.String()).Msg("Failed to mark order paid")
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *orderRepository) getOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	o, err := scanOrder(r.db.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Msg("Failed to scan order row")
		return nil, err
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o       domain.Order
		level   string
		urgency string
		status  string
	)
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.TelegramUserID,
		&o.TelegramUsername,
		&o.Subject,
		&o.InstructionFilePath,
		&level,
		&o.LengthPages,
		&urgency,
		&o.BasePrice,
		&o.UrgencyMultiplier,
		&o.ReferralDiscount,
		&o.FinalPrice,
		&o.WalletAmountUsed,
		&o.UsedReferralCode,
		&o.SessionToken,
		&o.PaymentProofPath,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.AcademicLevel = domain.AcademicLevel(level)
	o.Urgency = domain.UrgencyTier(urgency)
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
