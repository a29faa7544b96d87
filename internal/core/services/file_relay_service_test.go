package services

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type relayFixture struct {
	*orderFixture
	relay   *FileRelayService
	fetcher *MockFileFetcher
	files   *MockFileStore
}

func newRelayFixture() *relayFixture {
	nopLogger := zerolog.Nop()
	f := &relayFixture{orderFixture: newOrderFixture(), fetcher: new(MockFileFetcher), files: new(MockFileStore)}
	f.relay = NewFileRelayService(f.fetcher, f.files, f.svc, &nopLogger)
	f.relay.now = func() time.Time { return time.Unix(1700000000, 0) }
	return f
}

func fetched(body, contentType string) *ports.FetchedFile {
	return &ports.FetchedFile{Body: io.NopCloser(strings.NewReader(body)), Size: int64(len(body)), ContentType: contentType}
}

func TestFileRelayService_StoreInstruction(t *testing.T) {
	f := newRelayFixture()
	url := "https://api.telegram.org/file/botT/documents/file_3.pdf"
	f.fetcher.On("Fetch", mock.Anything, url).Return(fetched("%PDF", "application/pdf"), nil)
	f.files.On("Put", mock.Anything, ports.BucketInstructions, "instruction_4242_1700000000.pdf", "application/pdf", mock.Anything, int64(4)).
		Return("order-instructions/instruction_4242_1700000000.pdf", nil)

	path, err := f.relay.StoreInstruction(context.Background(), 4242, url)

	require.NoError(t, err)
	assert.Equal(t, "order-instructions/instruction_4242_1700000000.pdf", path)
	f.files.AssertExpectations(t)
}

func TestFileRelayService_StorePaymentProofMarksPaid(t *testing.T) {
	f := newRelayFixture()
	id := uuid.New()
	pending := &domain.Order{ID: id, OrderNumber: "ME-AAAA1111", TelegramUserID: 4242, Status: domain.OrderStatusPending}
	paid := *pending
	paid.Status = domain.OrderStatusPaid
	stored := "payment-proofs/4242/ME-AAAA1111_1700000000.jpg"

	f.orders.On("GetByNumber", mock.Anything, "ME-AAAA1111").Return(pending, nil)
	f.orders.On("GetByID", mock.Anything, id).Return(pending, nil).Once()
	f.orders.On("MarkPaid", mock.Anything, id, &stored).Return(true, nil).Once()
	f.orders.On("GetByID", mock.Anything, id).Return(&paid, nil).Once()
	f.bus.On("Publish", mock.Anything, ports.TopicOrderPaid, mock.Anything).Return(nil).Once()
	f.fetcher.On("Fetch", mock.Anything, "https://t.me/file/photo_1.jpg?x=1").Return(fetched("jpeg", "image/jpeg"), nil)
	f.files.On("Put", mock.Anything, ports.BucketPaymentProofs, "4242/ME-AAAA1111_1700000000.jpg", "image/jpeg", mock.Anything, int64(4)).
		Return(stored, nil)

	order, err := f.relay.StorePaymentProof(context.Background(), domain.OrderRef{OrderNumber: "ME-AAAA1111"}, "https://t.me/file/photo_1.jpg?x=1")

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	f.orders.AssertExpectations(t)
	f.bus.AssertExpectations(t)
}

func TestFileRelayService_StorePaymentProofFailures(t *testing.T) {
	f := newRelayFixture()
	f.orders.On("GetByNumber", mock.Anything, "ME-MISSING0").Return(nil, nil)
	f.orders.On("GetByNumber", mock.Anything, "ME-CANCEL00").Return(&domain.Order{Status: domain.OrderStatusCancelled}, nil)
	f.orders.On("GetByNumber", mock.Anything, "ME-BROKEN00").Return(&domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending}, nil)
	f.fetcher.On("Fetch", mock.Anything, "https://t.me/file/x.jpg").Return(nil, errors.New("download status 404"))

	_, err := f.relay.StorePaymentProof(context.Background(), domain.OrderRef{OrderNumber: "ME-MISSING0"}, "https://t.me/file/x.jpg")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.relay.StorePaymentProof(context.Background(), domain.OrderRef{OrderNumber: "ME-CANCEL00"}, "https://t.me/file/x.jpg")
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	_, err = f.relay.StorePaymentProof(context.Background(), domain.OrderRef{OrderNumber: "ME-BROKEN00"}, "https://t.me/file/x.jpg")
	assert.ErrorContains(t, err, "download file")
	f.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	f.files.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestURLExtension(t *testing.T) {
	assert.Equal(t, "png", urlExtension("https://x/y/file.PNG", ""))
	assert.Equal(t, "jpg", urlExtension("https://x/y/file", "image/jpeg"))
	assert.Equal(t, "pdf", urlExtension("https://x/y/file?name=a.b", "application/pdf"))
	assert.Equal(t, "bin", urlExtension("https://x/y/file", ""))
}
