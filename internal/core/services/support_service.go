package services

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const defaultThreadLimit = 500

// SupportService relays messages between customers and the support team.
type SupportService struct {
	repo ports.SupportRepository
	bot  ports.BotClientPort
	bus  ports.EventBus
	log  zerolog.Logger
	now  func() time.Time
}

// NewSupportService creates the support relay.
func NewSupportService(repo ports.SupportRepository, bot ports.BotClientPort, bus ports.EventBus, baseLogger *zerolog.Logger) *SupportService {
	return &SupportService{
		repo: repo,
		bot:  bot,
		bus:  bus,
		log:  baseLogger.With().Str("component", "support_service").Logger(),
		now:  time.Now,
	}
}

// RecordUserMessage appends a customer message to their thread.
func (s *SupportService) RecordUserMessage(ctx context.Context, user *domain.EndUser, text string) (*domain.SupportMessage, error) {
	msg := &domain.SupportMessage{
		ID:               uuid.New(),
		TelegramUserID:   user.TelegramUserID,
		TelegramUsername: user.Username,
		Text:             text,
		CreatedAt:        s.now(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("save support message: %w", err)
	}
	s.publish(ctx, msg)
	return msg, nil
}

// AdminReply stores the reply and delivers it to the customer. Both effects
// are attempted even if the first fails; their errors are joined.
func (s *SupportService) AdminReply(ctx context.Context, telegramID int64, adminName, text string) (*domain.SupportMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("reply text is empty")
	}
	if adminName == "" {
		adminName = "Support"
	}

	msg := &domain.SupportMessage{
		ID:             uuid.New(),
		TelegramUserID: telegramID,
		Text:           text,
		IsFromAdmin:    true,
		AdminName:      &adminName,
		CreatedAt:      s.now(),
	}

	var saveErr, sendErr error
	if err := s.repo.Create(ctx, msg); err != nil {
		saveErr = fmt.Errorf("save reply: %w", err)
		s.log.Error().Err(err).Int64("user_id", telegramID).Msg("Failed to persist support reply")
	} else {
		s.publish(ctx, msg)
	}

	body := fmt.Sprintf("<b>%s (Support):</b>\n\n%s", html.EscapeString(adminName), html.EscapeString(text))
	params := ports.SendMessageParams{ChatID: telegramID, Text: body, ParseMode: "HTML"}
	if _, err := s.bot.SendMessage(ctx, params); err != nil {
		sendErr = fmt.Errorf("deliver reply: %w", err)
		s.log.Error().Err(err).Int64("user_id", telegramID).Msg("Failed to deliver support reply")
	}

	if err := errors.Join(saveErr, sendErr); err != nil {
		return msg, err
	}
	return msg, nil
}

// Threads groups recent messages by customer, most recently active first.
func (s *SupportService) Threads(ctx context.Context, limit int) ([]domain.SupportThread, error) {
	if limit <= 0 {
		limit = defaultThreadLimit
	}
	msgs, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list support messages: %w", err)
	}
	return groupThreads(msgs), nil
}

// Thread returns one customer's conversation, oldest first.
func (s *SupportService) Thread(ctx context.Context, telegramID int64, limit int) (*domain.SupportThread, error) {
	if limit <= 0 {
		limit = defaultThreadLimit
	}
	msgs, err := s.repo.ListByUser(ctx, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("list support thread: %w", err)
	}
	threads := groupThreads(msgs)
	if len(threads) == 0 {
		return &domain.SupportThread{TelegramUserID: telegramID, Messages: []domain.SupportMessage{}}, nil
	}
	return &threads[0], nil
}

func groupThreads(msgs []domain.SupportMessage) []domain.SupportThread {
	grouped := lo.GroupBy(msgs, func(m domain.SupportMessage) int64 { return m.TelegramUserID })

	threads := make([]domain.SupportThread, 0, len(grouped))
	for id, list := range grouped {
		sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })

		t := domain.SupportThread{
			TelegramUserID: id,
			LastMessageAt:  list[len(list)-1].CreatedAt,
			Messages:       list,
		}
		// Admin replies carry no username; take it from the customer side.
		if m, ok := lo.Find(list, func(m domain.SupportMessage) bool { return m.TelegramUsername != nil }); ok {
			t.TelegramUsername = m.TelegramUsername
		}
		threads = append(threads, t)
	}

	sort.Slice(threads, func(i, j int) bool {
		if threads[i].LastMessageAt.Equal(threads[j].LastMessageAt) {
			return threads[i].TelegramUserID < threads[j].TelegramUserID
		}
		return threads[i].LastMessageAt.After(threads[j].LastMessageAt)
	})
	return threads
}

func (s *SupportService) publish(ctx context.Context, msg *domain.SupportMessage) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, ports.TopicSupportMessageCreated, ports.SupportEvent{Message: msg}); err != nil {
		s.log.Error().Err(err).Msg("Failed to publish support event")
	}
}
