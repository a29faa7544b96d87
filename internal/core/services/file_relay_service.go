package services

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// InstructionKey is the object key of an uploaded instruction file.
func InstructionKey(telegramID int64, at time.Time, ext string) string {
	return fmt.Sprintf("instruction_%d_%d.%s", telegramID, at.Unix(), ext)
}

// PaymentProofKey is the object key of a payment proof, namespaced by customer.
func PaymentProofKey(telegramID int64, orderNumber string, at time.Time, ext string) string {
	return fmt.Sprintf("%d/%s_%d.%s", telegramID, orderNumber, at.Unix(), ext)
}

// FileRelayService copies chat files, given by URL, into the blob store for
// callers outside the bot.
type FileRelayService struct {
	fetcher ports.FileFetcher
	files   ports.FileStore
	orders  *OrderService
	log     zerolog.Logger
	now     func() time.Time
}

// NewFileRelayService creates the relay.
func NewFileRelayService(fetcher ports.FileFetcher, files ports.FileStore, orders *OrderService, baseLogger *zerolog.Logger) *FileRelayService {
	return &FileRelayService{
		fetcher: fetcher,
		files:   files,
		orders:  orders,
		log:     baseLogger.With().Str("component", "file_relay").Logger(),
		now:     time.Now,
	}
}

// StoreInstruction stores an instruction file and returns its path.
func (s *FileRelayService) StoreInstruction(ctx context.Context, telegramID int64, fileURL string) (string, error) {
	return s.copy(ctx, fileURL, ports.BucketInstructions, func(ext string) string {
		return InstructionKey(telegramID, s.now(), ext)
	})
}

// StorePaymentProof stores the proof and marks the order paid through the
// regular mark-paid path.
func (s *FileRelayService) StorePaymentProof(ctx context.Context, ref domain.OrderRef, fileURL string) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: order %s is cancelled", domain.ErrInvalidStatusTransition, order.OrderNumber)
	}

	stored, err := s.copy(ctx, fileURL, ports.BucketPaymentProofs, func(ext string) string {
		return PaymentProofKey(order.TelegramUserID, order.OrderNumber, s.now(), ext)
	})
	if err != nil {
		return nil, err
	}
	return s.orders.MarkPaid(ctx, domain.OrderRef{ID: &order.ID}, &stored, SourceRelay)
}

func (s *FileRelayService) copy(ctx context.Context, fileURL, bucket string, key func(ext string) string) (string, error) {
	if strings.TrimSpace(fileURL) == "" {
		return "", fmt.Errorf("file url is required")
	}
	fetched, err := s.fetcher.Fetch(ctx, fileURL)
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	defer fetched.Body.Close()

	ext := urlExtension(fileURL, fetched.ContentType)
	stored, err := s.files.Put(ctx, bucket, key(ext), fetched.ContentType, fetched.Body, fetched.Size)
	if err != nil {
		return "", fmt.Errorf("store file: %w", err)
	}
	s.log.Info().Str("path", stored).Msg("Relayed chat file")
	return stored, nil
}

// urlExtension prefers the URL's own extension, then the content type.
func urlExtension(fileURL, contentType string) string {
	p := fileURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), "."); ext != "" && len(ext) <= 5 {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		if contentType == "image/jpeg" {
			return "jpg"
		}
		return strings.TrimPrefix(exts[0], ".")
	}
	return "bin"
}
