package telegram

import (
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/config"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// UpdateHandler processes one update. A non-nil error means the update
// must be delivered again.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *tgbotapi.Update) error
}

type job struct {
	update tgbotapi.Update
	done   chan<- error // nil in polling mode
}

// BotServer is responsible for running the bot (polling or webhook).
// Updates are sharded by sender so one user's updates run one at a time
// and in arrival order.
type BotServer struct {
	api     *tgbotapi.BotAPI
	handler UpdateHandler
	dedupe  ports.UpdateDeduper // optional
	cfg     *config.BotConfig
	log     zerolog.Logger

	shards []chan job
	wg     sync.WaitGroup
}

// NewBotServer creates a new server instance
func NewBotServer(
	api *tgbotapi.BotAPI,
	handler UpdateHandler,
	dedupe ports.UpdateDeduper,
	cfg *config.BotConfig,
	baseLogger *zerolog.Logger,
) *BotServer {
	return &BotServer{
		api:     api,
		handler: handler,
		dedupe:  dedupe,
		cfg:     cfg,
		log:     baseLogger.With().Str("component", "bot_server").Logger(),
	}
}

// Start begins the bot server based on the config mode
func (s *BotServer) Start(ctx context.Context) error {
	s.log.Info().Str("mode", s.cfg.Mode).Int("workers", s.workerCount()).Msg("Starting bot server...")

	switch s.cfg.Mode {
	case config.BotModePolling:
		// startPolling will block until the context is cancelled
		return s.startPolling(ctx)
	case config.BotModeWebhook:
		// startWebhook will block until the context is cancelled
		return s.startWebhook(ctx)
	default:
		return fmt.Errorf("unknown bot mode: %s", s.cfg.Mode)
	}
}

// startPolling starts the bot in long polling mode with a worker pool
func (s *BotServer) startPolling(ctx context.Context) error {
	// 1. Clear any existing webhook
	if _, err := s.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false}); err != nil {
		s.log.Warn().Err(err).Msg("Failed to delete webhook (continuing anyway)")
	} else {
		s.log.Info().Msg("Webhook deleted successfully")
	}

	// 2. Create the channel for updates
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.api.GetUpdatesChan(u)

	// 3. Start the worker pool
	s.startWorkers(ctx)
	s.log.Info().Msg("Polling update listener started")

	// 4. Main loop: Listen for updates and dispatch jobs
	for {
		select {
		case <-ctx.Done():
			s.api.StopReceivingUpdates()
			s.stopWorkers()
			s.log.Info().Msg("Polling stopped gracefully")
			return nil
		case update, ok := <-updates:
			if !ok {
				s.stopWorkers()
				return errors.New("telegram update channel closed")
			}
			s.dispatch(update, nil)
		}
	}
}

// startWebhook starts the bot in webhook mode (for production)
func (s *BotServer) startWebhook(ctx context.Context) error {
	// 1. Set the webhook
	path := "/webhook/" + s.api.Token
	wh, err := tgbotapi.NewWebhook(s.cfg.Webhook.URL + path)
	if err != nil {
		return fmt.Errorf("create webhook config: %w", err)
	}
	if _, err := s.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := s.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}
	if info.LastErrorDate != 0 {
		s.log.Error().Str("error_message", info.LastErrorMessage).Msg("Telegram webhook has a last error")
	} else {
		s.log.Info().Msg("Webhook set successfully, no last error")
	}

	// 2. Start the worker pool before accepting requests
	s.startWorkers(ctx)

	// 3. Start the HTTP server. TLS is terminated by the reverse proxy.
	mux := http.NewServeMux()
	mux.Handle(path, s)
	httpServer := &http.Server{
		Addr:              s.cfg.Webhook.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", httpServer.Addr).Msg("Starting HTTP server for webhook")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			s.stopWorkers()
			return fmt.Errorf("webhook http server: %w", err)
		}
	}

	s.log.Info().Msg("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	s.stopWorkers()
	s.log.Info().Msg("Webhook server stopped gracefully")
	return nil
}

// ServeHTTP accepts one webhook delivery and answers only once it has been
// processed, with 500 on failure so Telegram delivers it again.
func (s *BotServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	update, err := s.api.HandleUpdate(r)
	if err != nil {
		s.log.Warn().Err(err).Msg("Rejected malformed webhook request")
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}

	done := make(chan error, 1)
	s.dispatch(*update, done)

	select {
	case err := <-done:
		if err != nil {
			http.Error(w, "update failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	case <-r.Context().Done():
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
	}
}

func (s *BotServer) workerCount() int {
	if s.cfg.WorkerCount < 1 {
		return 1
	}
	return s.cfg.WorkerCount
}

func (s *BotServer) startWorkers(ctx context.Context) {
	// In-flight updates finish even when shutdown has begun.
	workCtx := context.WithoutCancel(ctx)

	s.shards = make([]chan job, s.workerCount())
	for i := range s.shards {
		jobs := make(chan job, 100)
		s.shards[i] = jobs
		s.wg.Add(1)
		go func(id int) {
			defer s.wg.Done()
			log := s.log.With().Int("worker_id", id).Logger()
			log.Debug().Msg("Starting update worker")
			for j := range jobs {
				err := s.process(workCtx, &j.update)
				if j.done != nil {
					j.done <- err
				}
			}
			log.Debug().Msg("Stopping update worker (channel closed)")
		}(i)
	}
}

func (s *BotServer) stopWorkers() {
	for _, jobs := range s.shards {
		close(jobs)
	}
	s.wg.Wait()
}

// dispatch routes update to the shard owning its sender.
func (s *BotServer) dispatch(update tgbotapi.Update, done chan<- error) {
	var userID int64
	if from := update.SentFrom(); from != nil {
		userID = from.ID
	}
	shard := int(uint64(userID) % uint64(len(s.shards)))
	s.shards[shard] <- job{update: update, done: done}
}

// process skips updates that were already handled, then records success.
func (s *BotServer) process(ctx context.Context, update *tgbotapi.Update) error {
	log := s.log.With().Int("update_id", update.UpdateID).Logger()

	if s.dedupe != nil {
		seen, err := s.dedupe.Seen(ctx, update.UpdateID)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("Dedupe lookup failed, processing anyway")
		case seen:
			log.Info().Msg("Skipping already processed update")
			return nil
		}
	}

	if err := s.handler.HandleUpdate(ctx, update); err != nil {
		return err
	}

	if s.dedupe != nil {
		if err := s.dedupe.MarkProcessed(ctx, update.UpdateID, s.cfg.DedupeTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to record processed update")
		}
	}
	return nil
}
