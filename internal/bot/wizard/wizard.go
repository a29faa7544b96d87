// Package wizard drives the order dialogue. The persisted ConversationState
// is its only memory between updates; every operation loads nothing itself
// and works on the Session handed to it by the router.
package wizard

import (
	"FlashGrade/internal/bot/messages"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/core/pricing"
	"FlashGrade/internal/core/services"
	"FlashGrade/internal/shared/config"
	"FlashGrade/internal/shared/metrics"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Orders is the order side of the wizard: quoting, placing and paying.
type Orders interface {
	Quote(ctx context.Context, telegramID int64, draft domain.OrderDraft) (services.Quote, error)
	PlaceOrder(ctx context.Context, user *domain.EndUser, draft domain.OrderDraft) (*domain.Order, error)
	MarkPaid(ctx context.Context, ref domain.OrderRef, proofPath *string, source string) (*domain.Order, error)
}

// Referrals validates codes and summarises a user's own code.
type Referrals interface {
	Validate(ctx context.Context, raw string, telegramID int64) (*domain.ReferralCode, error)
	Summary(ctx context.Context, telegramID int64) (*services.ReferralSummary, error)
}

// Support records customer messages written in the support step.
type Support interface {
	RecordUserMessage(ctx context.Context, user *domain.EndUser, text string) (*domain.SupportMessage, error)
}

// Deps are the collaborators of a Wizard.
type Deps struct {
	States    ports.ConversationStateRepository
	Pricing   *pricing.Engine
	Orders    Orders
	Referrals Referrals
	Support   Support
	Bot       ports.BotClientPort
	Files     ports.FileStore
	Fetcher   ports.FileFetcher
	Metrics   *metrics.Metrics
}

// Session is one inbound update together with who sent it and where they are.
type Session struct {
	Update *ports.BotUpdate
	User   *domain.EndUser
	State  *domain.ConversationState
}

func (s *Session) chatID() int64 {
	return s.Update.ChatID
}

// renderer shows the prompt of one step from the current draft.
type renderer func(ctx context.Context, s *Session) error

// Wizard implements every transition of the order dialogue.
type Wizard struct {
	Deps
	botUsername string
	payment     config.PaymentConfig
	log         zerolog.Logger
	now         func() time.Time
	steps       map[domain.Step]renderer
}

// New builds a wizard and checks that every step can be rendered.
func New(cfg *config.Config, deps Deps, baseLogger *zerolog.Logger) (*Wizard, error) {
	if deps.Pricing == nil {
		deps.Pricing = pricing.MustDefault()
	}
	w := &Wizard{
		Deps:        deps,
		botUsername: cfg.Bot.Username,
		payment:     cfg.Payment,
		log:         baseLogger.With().Str("component", "order_wizard").Logger(),
		now:         time.Now,
	}
	if w.payment.Currency == "" {
		w.payment.Currency = "€"
	}

	w.steps = map[domain.Step]renderer{
		domain.StepHome:                    w.renderHome,
		domain.StepChooseInstructionMethod: w.renderChooseInstructionMethod,
		domain.StepEnterSubject:            w.renderEnterSubject,
		domain.StepAwaitingInstructionFile: w.renderAwaitingInstructionFile,
		domain.StepSelectLevel:             w.renderSelectLevel,
		domain.StepEnterLength:             w.renderEnterLength,
		domain.StepSelectUrgency:           w.renderSelectUrgency,
		domain.StepEnterReferralCode:       w.renderEnterReferralCode,
		domain.StepConfirmOrder:            w.renderConfirmOrder,
		domain.StepAwaitingPaymentProof:    w.renderAwaitingPaymentProof,
		domain.StepSupport:                 w.renderSupport,
	}
	for _, step := range domain.AllSteps() {
		if _, ok := w.steps[step]; !ok {
			return nil, fmt.Errorf("no renderer for step %q", step)
		}
	}
	return w, nil
}

// Render shows the prompt of step. It fails only for unknown step tags.
func (w *Wizard) Render(ctx context.Context, s *Session, step domain.Step) error {
	r, ok := w.steps[step]
	if !ok {
		return fmt.Errorf("no renderer for step %q", step)
	}
	if w.Metrics != nil {
		w.Metrics.WizardTransitions.WithLabelValues(string(step)).Inc()
	}
	return r(ctx, s)
}

// ready reports whether the draft holds what step's prompt needs.
func ready(step domain.Step, d domain.OrderDraft) bool {
	switch step {
	case domain.StepEnterLength:
		return d.Level != nil
	case domain.StepSelectUrgency:
		return d.Level != nil && d.Pages != nil
	case domain.StepEnterReferralCode:
		return d.Pricing != nil
	case domain.StepConfirmOrder:
		return d.Validate() == nil
	case domain.StepAwaitingPaymentProof:
		return d.OrderNumber != nil
	default:
		return true
	}
}

// advance moves forward to next, persists, then renders next.
func (w *Wizard) advance(ctx context.Context, s *Session, next domain.Step) error {
	s.State.Advance(next)
	if err := w.save(ctx, s); err != nil {
		return err
	}
	return w.Render(ctx, s, next)
}

func (w *Wizard) save(ctx context.Context, s *Session) error {
	err := w.States.Save(ctx, s.State)
	if errors.Is(err, domain.ErrStateConflict) && w.Metrics != nil {
		w.Metrics.StateConflicts.Inc()
	}
	if err != nil {
		return fmt.Errorf("save conversation state: %w", err)
	}
	return nil
}

// expect guards step-specific operations against buttons of old messages.
// When the user is elsewhere, their actual step is shown instead.
func (w *Wizard) expect(ctx context.Context, s *Session, steps ...domain.Step) (bool, error) {
	if lo.Contains(steps, s.State.CurrentStep) {
		return true, nil
	}
	zerolog.Ctx(ctx).Debug().
		Str("step", string(s.State.CurrentStep)).
		Interface("expected", steps).
		Msg("Ignoring action for another step")
	return false, w.Render(ctx, s, s.State.CurrentStep)
}

// show replaces the pressed message on callbacks and sends a new one otherwise.
func (w *Wizard) show(ctx context.Context, s *Session, b *messages.Builder) error {
	if s.Update.IsCallback() && s.Update.MessageID != 0 {
		return w.Bot.EditMessageText(ctx, b.BuildEdit(s.Update.MessageID))
	}
	_, err := w.Bot.SendMessage(ctx, b.Build())
	return err
}

// notice always sends a new message.
func (w *Wizard) notice(ctx context.Context, s *Session, b *messages.Builder) error {
	_, err := w.Bot.SendMessage(ctx, b.Build())
	return err
}
