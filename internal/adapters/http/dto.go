package http

import (
	"FlashGrade/internal/core/domain"
	"time"
)

type orderResponse struct {
	ID                  string    `json:"id"`
	OrderNumber         string    `json:"order_number"`
	TelegramUserID      int64     `json:"telegram_user_id"`
	TelegramUsername    *string   `json:"telegram_username,omitempty"`
	Subject             string    `json:"subject"`
	InstructionFilePath *string   `json:"instruction_file_path,omitempty"`
	AcademicLevel       string    `json:"academic_level"`
	LengthPages         int       `json:"length_pages"`
	Urgency             string    `json:"urgency"`
	BasePrice           float64   `json:"base_price"`
	UrgencyMultiplier   float64   `json:"urgency_multiplier"`
	ReferralDiscount    float64   `json:"referral_discount"`
	FinalPrice          float64   `json:"final_price"`
	WalletAmountUsed    float64   `json:"wallet_amount_used"`
	AmountDue           float64   `json:"amount_due"`
	UsedReferralCode    *string   `json:"used_referral_code,omitempty"`
	PaymentProofPath    *string   `json:"payment_proof_path,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:                  o.ID.String(),
		OrderNumber:         o.OrderNumber,
		TelegramUserID:      o.TelegramUserID,
		TelegramUsername:    o.TelegramUsername,
		Subject:             o.Subject,
		InstructionFilePath: o.InstructionFilePath,
		AcademicLevel:       string(o.AcademicLevel),
		LengthPages:         o.LengthPages,
		Urgency:             string(o.Urgency),
		BasePrice:           o.BasePrice,
		UrgencyMultiplier:   o.UrgencyMultiplier,
		ReferralDiscount:    o.ReferralDiscount,
		FinalPrice:          o.FinalPrice,
		WalletAmountUsed:    o.WalletAmountUsed,
		AmountDue:           o.AmountDue(),
		UsedReferralCode:    o.UsedReferralCode,
		PaymentProofPath:    o.PaymentProofPath,
		Status:              string(o.Status),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

type supportMessageResponse struct {
	ID               string    `json:"id"`
	TelegramUserID   int64     `json:"telegram_user_id"`
	TelegramUsername *string   `json:"telegram_username,omitempty"`
	Text             string    `json:"message_text"`
	IsFromAdmin      bool      `json:"is_from_admin"`
	AdminName        *string   `json:"admin_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func toSupportMessageResponse(m *domain.SupportMessage) supportMessageResponse {
	return supportMessageResponse{
		ID:               m.ID.String(),
		TelegramUserID:   m.TelegramUserID,
		TelegramUsername: m.TelegramUsername,
		Text:             m.Text,
		IsFromAdmin:      m.IsFromAdmin,
		AdminName:        m.AdminName,
		CreatedAt:        m.CreatedAt,
	}
}

type threadResponse struct {
	TelegramUserID   int64                    `json:"telegram_user_id"`
	TelegramUsername *string                  `json:"telegram_username,omitempty"`
	LastMessageAt    time.Time                `json:"last_message_at"`
	Messages         []supportMessageResponse `json:"messages"`
}

func toThreadResponse(t *domain.SupportThread) threadResponse {
	msgs := make([]supportMessageResponse, 0, len(t.Messages))
	for i := range t.Messages {
		msgs = append(msgs, toSupportMessageResponse(&t.Messages[i]))
	}
	return threadResponse{
		TelegramUserID:   t.TelegramUserID,
		TelegramUsername: t.TelegramUsername,
		LastMessageAt:    t.LastMessageAt,
		Messages:         msgs,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

type verifyRequest struct {
	AccountID string `json:"account_id"`
	DeviceID  string `json:"device_id"`
	Code      string `json:"code"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type replyRequest struct {
	Text string `json:"text"`
}

type instructionRelayRequest struct {
	TelegramUserID int64  `json:"telegram_user_id"`
	FileURL        string `json:"file_url"`
}

type proofRelayRequest struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	FileURL     string `json:"file_url"`
}

type markPaidRequest struct {
	OrderID          string  `json:"order_id"`
	OrderNumber      string  `json:"order_number"`
	PaymentProofPath *string `json:"payment_proof_path"`
}
