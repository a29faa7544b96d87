package wizard

import (
	"FlashGrade/internal/bot/messages"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/core/pricing"
	"FlashGrade/internal/core/services"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// NewOrder starts a fresh draft. The stack restarts at home.
func (w *Wizard) NewOrder(ctx context.Context, s *Session) error {
	suggested := s.State.Draft.SuggestedReferralCode
	s.State.Reset()
	s.State.Draft.SuggestedReferralCode = suggested
	return w.advance(ctx, s, domain.StepChooseInstructionMethod)
}

// ChooseTyped selects typed instructions.
func (w *Wizard) ChooseTyped(ctx context.Context, s *Session) error {
	return w.chooseMethod(ctx, s, domain.StepEnterSubject)
}

// ChooseUpload selects uploaded instructions.
func (w *Wizard) ChooseUpload(ctx context.Context, s *Session) error {
	return w.chooseMethod(ctx, s, domain.StepAwaitingInstructionFile)
}

func (w *Wizard) chooseMethod(ctx context.Context, s *Session, next domain.Step) error {
	if ok, err := w.expect(ctx, s, domain.StepChooseInstructionMethod); !ok {
		return err
	}
	s.State.Draft.TruncateFrom(next)
	return w.advance(ctx, s, next)
}

// SubmitSubject stores typed instructions.
func (w *Wizard) SubmitSubject(ctx context.Context, s *Session, text string) error {
	subject := strings.TrimSpace(text)
	if subject == "" {
		return w.notice(ctx, s, messages.NewBuilder(s.chatID()).
			WithText("❌ Merci de décrire votre consigne en quelques mots."))
	}
	s.State.Draft.Subject = &subject
	s.State.Draft.InstructionFilePath = nil
	return w.advance(ctx, s, domain.StepSelectLevel)
}

// SubmitInstructionFile re-uploads the instruction file to the blob store.
func (w *Wizard) SubmitInstructionFile(ctx context.Context, s *Session, file *ports.FileInfo) error {
	key := services.InstructionKey(s.User.TelegramUserID, w.now(), fileExtension(file))
	path, err := w.storeChatFile(ctx, file, ports.BucketInstructions, key)
	if err != nil {
		return fmt.Errorf("store instruction file: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("path", path).Msg("Instruction file stored")

	s.State.Draft.InstructionFilePath = &path
	s.State.Draft.Subject = nil
	return w.advance(ctx, s, domain.StepSelectLevel)
}

// SelectLevel records the academic level.
func (w *Wizard) SelectLevel(ctx context.Context, s *Session, level domain.AcademicLevel) error {
	if ok, err := w.expect(ctx, s, domain.StepSelectLevel); !ok {
		return err
	}
	if _, known := w.Pricing.Level(level); !known {
		return w.Render(ctx, s, domain.StepSelectLevel)
	}
	s.State.Draft.Level = &level
	return w.advance(ctx, s, domain.StepEnterLength)
}

// SubmitLength parses the page count. Anything but an integer between 1
// and domain.MaxPages re-prompts without touching the state.
func (w *Wizard) SubmitLength(ctx context.Context, s *Session, text string) error {
	pages, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || !domain.ValidPages(pages) {
		return w.notice(ctx, s, messages.NewBuilder(s.chatID()).
			WithText(fmt.Sprintf("❌ Veuillez entrer un nombre de pages valide (entre 1 et %d).", domain.MaxPages)))
	}
	s.State.Draft.Pages = &pages
	return w.advance(ctx, s, domain.StepSelectUrgency)
}

// SelectUrgency records the deadline and prices the draft.
func (w *Wizard) SelectUrgency(ctx context.Context, s *Session, tier domain.UrgencyTier) error {
	if ok, err := w.expect(ctx, s, domain.StepSelectUrgency); !ok {
		return err
	}
	d := &s.State.Draft
	if d.Level == nil || d.Pages == nil {
		return w.Render(ctx, s, domain.StepSelectUrgency)
	}
	price, err := w.Pricing.Price(*d.Level, *d.Pages, tier)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Rejected urgency selection")
		return w.Render(ctx, s, domain.StepSelectUrgency)
	}

	d.Urgency = &tier
	d.Pricing = &price
	d.ReferralCode = nil
	d.ReferralDiscount = 0
	return w.advance(ctx, s, domain.StepEnterReferralCode)
}

// SubmitReferralCode applies a 10% discount for a valid code that is not
// the customer's own.
func (w *Wizard) SubmitReferralCode(ctx context.Context, s *Session, raw string) error {
	if ok, err := w.expect(ctx, s, domain.StepEnterReferralCode); !ok {
		return err
	}
	if s.State.Draft.Pricing == nil {
		return w.Render(ctx, s, domain.StepEnterReferralCode)
	}

	rc, err := w.Referrals.Validate(ctx, raw, s.User.TelegramUserID)
	switch {
	case errors.Is(err, domain.ErrReferralCodeNotFound):
		return w.referralRejected(ctx, s, "❌ Code invalide. Réessayez ou cliquez sur \"Continuer sans code\".")
	case errors.Is(err, domain.ErrSelfReferral):
		return w.referralRejected(ctx, s, "❌ Vous ne pouvez pas utiliser votre propre code !")
	case err != nil:
		return err
	}

	d := &s.State.Draft
	d.ApplyReferral(rc.Code, pricing.ReferralDiscount(d.Pricing.FinalPrice))
	d.SuggestedReferralCode = nil
	zerolog.Ctx(ctx).Info().Str("code", rc.Code).Float64("discount", d.ReferralDiscount).Msg("Referral code applied")
	return w.advance(ctx, s, domain.StepConfirmOrder)
}

// UseSuggestedReferral applies the code carried by the /start deep link.
func (w *Wizard) UseSuggestedReferral(ctx context.Context, s *Session) error {
	code := s.State.Draft.SuggestedReferralCode
	if code == nil {
		return w.Render(ctx, s, s.State.CurrentStep)
	}
	return w.SubmitReferralCode(ctx, s, *code)
}

func (w *Wizard) referralRejected(ctx context.Context, s *Session, text string) error {
	return w.notice(ctx, s, messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons([][]ports.Button{
		messages.Row(messages.Callback("➡️ Continuer sans code", CallbackSkipReferral)),
		messages.Row(homeButton()),
	}))
}

// SkipReferral goes to the summary without a discount.
func (w *Wizard) SkipReferral(ctx context.Context, s *Session) error {
	if ok, err := w.expect(ctx, s, domain.StepEnterReferralCode); !ok {
		return err
	}
	s.State.Draft.ReferralCode = nil
	s.State.Draft.ReferralDiscount = 0
	return w.advance(ctx, s, domain.StepConfirmOrder)
}

// ConfirmOrder validates the draft, creates the pending order and shows
// how to pay. The state keeps only the order number.
func (w *Wizard) ConfirmOrder(ctx context.Context, s *Session) error {
	if ok, err := w.expect(ctx, s, domain.StepConfirmOrder); !ok {
		return err
	}

	order, err := w.Orders.PlaceOrder(ctx, s.User, s.State.Draft)
	switch {
	case errors.Is(err, domain.ErrIncompleteDraft):
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Incomplete draft at confirmation")
		if err := w.notice(ctx, s, messages.NewBuilder(s.chatID()).
			WithText("❌ Il manque des informations à votre commande. Merci de recommencer.")); err != nil {
			return err
		}
		return w.Home(ctx, s)
	case errors.Is(err, domain.ErrInsufficientBalance):
		return w.Render(ctx, s, domain.StepConfirmOrder)
	case err != nil:
		return err
	}

	s.State.CurrentStep = domain.StepAwaitingPaymentProof
	s.State.NavigationStack = []domain.Step{}
	s.State.Draft = domain.OrderDraft{OrderNumber: &order.OrderNumber}
	if err := w.save(ctx, s); err != nil {
		return err
	}
	if w.Metrics != nil {
		w.Metrics.WizardTransitions.WithLabelValues(string(domain.StepAwaitingPaymentProof)).Inc()
	}
	return w.show(ctx, s, w.orderCreatedMessage(s.chatID(), order))
}

func (w *Wizard) orderCreatedMessage(chatID int64, order *domain.Order) *messages.Builder {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>✅ Commande créée!</b>\n\n<b>N° commande:</b> <code>%s</code>\n\n", order.OrderNumber)
	fmt.Fprintf(&sb, "<b>💰 Prix total:</b> %s\n", w.money(order.FinalPrice))
	if order.WalletAmountUsed > 0 {
		fmt.Fprintf(&sb, "<b>🎁 Bons d'achat utilisés:</b> -%s\n", w.money(order.WalletAmountUsed))
	}
	fmt.Fprintf(&sb, "<b>💳 Montant à payer:</b> %s", w.money(order.AmountDue()))

	if order.AmountDue() > 0 {
		fmt.Fprintf(&sb, "\n\n<b>💳 Paiement</b>\n\n%s\n\n", w.payment.Instructions)
		sb.WriteString("📷 <b>Envoyez votre preuve de paiement</b> pour qu'on commence immédiatement! 🚀")
	} else {
		sb.WriteString("\n\n✅ <b>Commande entièrement payée avec vos bons d'achat!</b>\n\n")
		sb.WriteString("📸 Envoyez quand même une capture d'écran de cette conversation comme confirmation.")
	}

	return messages.NewBuilder(chatID).WithText(sb.String()).WithInlineButtons([][]ports.Button{
		messages.Row(messages.Callback("📷 Envoyer la preuve de paiement", CallbackUploadProof)),
		messages.Row(messages.Callback("💬 Support", CallbackSupport)),
		messages.Row(homeButton()),
	})
}

// AskPaymentProof shows how to send the proof for the pending order.
func (w *Wizard) AskPaymentProof(ctx context.Context, s *Session) error {
	if ok, err := w.expect(ctx, s, domain.StepAwaitingPaymentProof); !ok {
		return err
	}
	return w.Render(ctx, s, domain.StepAwaitingPaymentProof)
}

// SubmitPaymentProof stores the proof and marks the order paid through the
// same path the dashboard uses, then returns the customer home.
func (w *Wizard) SubmitPaymentProof(ctx context.Context, s *Session, file *ports.FileInfo) error {
	number := s.State.Draft.OrderNumber
	if number == nil {
		return w.fileOutsideFlow(ctx, s)
	}

	key := services.PaymentProofKey(s.User.TelegramUserID, *number, w.now(), fileExtension(file))
	path, err := w.storeChatFile(ctx, file, ports.BucketPaymentProofs, key)
	if err != nil {
		return fmt.Errorf("store payment proof: %w", err)
	}

	_, err = w.Orders.MarkPaid(ctx, domain.OrderRef{OrderNumber: *number}, &path, services.SourceWizard)
	if errors.Is(err, domain.ErrOrderNotFound) || errors.Is(err, domain.ErrInvalidStatusTransition) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("order", *number).Msg("Proof received for an order that cannot be paid")
		s.State.Reset()
		if err := w.save(ctx, s); err != nil {
			return err
		}
		return w.notice(ctx, s, messages.NewBuilder(s.chatID()).
			WithText("❌ Cette commande est introuvable ou a été annulée. Contactez le support si besoin.").
			WithInlineButtons([][]ports.Button{
				messages.Row(messages.Callback("💬 Support", CallbackSupport)),
				messages.Row(homeButton()),
			}))
	}
	if err != nil {
		return err
	}

	s.State.Reset()
	if err := w.save(ctx, s); err != nil {
		return err
	}

	text := "✅ <b>Preuve de paiement reçue!</b>\n\n" +
		"Votre preuve a été envoyée avec succès. Notre équipe va la vérifier et vous recevrez une confirmation rapidement.\n\n" +
		fmt.Sprintf("<b>Numéro de commande:</b> <code>%s</code>\n\n", *number) +
		"Merci de votre confiance! 🙏"
	return w.notice(ctx, s, messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons([][]ports.Button{
		messages.Row(messages.Callback("💬 Support", CallbackSupport)),
		messages.Row(homeButton()),
	}))
}
