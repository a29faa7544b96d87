package wizard

import (
	"FlashGrade/internal/bot/messages"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/core/services"
	"context"
	"fmt"
	"html"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog"
)

// Start handles /start. A deep-link payload is kept as a suggested referral code.
func (w *Wizard) Start(ctx context.Context, s *Session, payload string) error {
	suggested := s.State.Draft.SuggestedReferralCode
	if code := services.NormalizeCode(payload); code != "" {
		suggested = &code
		zerolog.Ctx(ctx).Info().Str("code", code).Msg("Started from referral link")
	}
	return w.goHome(ctx, s, suggested)
}

// Home clears the stack and the draft. It is safe to call from any step.
// The suggested referral code survives: it came from the /start deep link,
// not from the order being abandoned, and is dropped once used.
func (w *Wizard) Home(ctx context.Context, s *Session) error {
	return w.goHome(ctx, s, s.State.Draft.SuggestedReferralCode)
}

func (w *Wizard) goHome(ctx context.Context, s *Session, suggested *string) error {
	s.State.Reset()
	s.State.Draft.SuggestedReferralCode = suggested
	if err := w.save(ctx, s); err != nil {
		return err
	}
	return w.Render(ctx, s, domain.StepHome)
}

// Back pops the navigation stack and renders the popped step. Re-entering
// a step forgets what was collected from it onwards. An empty stack, or a
// step whose prompt can no longer be built, lands on home.
func (w *Wizard) Back(ctx context.Context, s *Session) error {
	prev, ok := s.State.Pop()
	if !ok || prev == domain.StepHome || !prev.Valid() {
		return w.Home(ctx, s)
	}

	s.State.Draft.TruncateFrom(prev)
	if !ready(prev, s.State.Draft) {
		zerolog.Ctx(ctx).Warn().Str("step", string(prev)).Msg("Draft no longer fits popped step, going home")
		return w.Home(ctx, s)
	}

	s.State.CurrentStep = prev
	if err := w.save(ctx, s); err != nil {
		return err
	}
	return w.Render(ctx, s, prev)
}

// EnterSupport opens the support side branch, remembering where the user was.
func (w *Wizard) EnterSupport(ctx context.Context, s *Session) error {
	if s.State.CurrentStep == domain.StepSupport {
		return w.Render(ctx, s, domain.StepSupport)
	}
	return w.advance(ctx, s, domain.StepSupport)
}

// SupportMessage appends free text written in the support step to the thread.
func (w *Wizard) SupportMessage(ctx context.Context, s *Session, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if _, err := w.Support.RecordUserMessage(ctx, s.User, text); err != nil {
		return err
	}
	return w.notice(ctx, s, messages.NewBuilder(s.chatID()).
		WithText("✅ <b>Message envoyé!</b>\n\nNotre équipe vous répondra rapidement.").
		WithInlineButtons([][]ports.Button{navRow()}))
}

// ShowPricing displays the rate card. The state is left untouched.
func (w *Wizard) ShowPricing(ctx context.Context, s *Session) error {
	return w.show(ctx, s, messages.NewBuilder(s.chatID()).WithText(w.pricingText()).WithInlineButtons([][]ports.Button{
		messages.Row(messages.Callback("📝 Nouvelle commande", CallbackNewOrder)),
		messages.Row(homeButton()),
	}))
}

// ShowReferral displays the user's code, issuing it on first visit.
func (w *Wizard) ShowReferral(ctx context.Context, s *Session) error {
	summary, err := w.Referrals.Summary(ctx, s.User.TelegramUserID)
	if err != nil {
		return err
	}
	rc := summary.Code

	text := "<b>🎁 Programme de Parrainage</b>\n\n" +
		fmt.Sprintf("<b>Ton code personnel:</b> <code>%s</code>\n\n", html.EscapeString(rc.Code)) +
		fmt.Sprintf("<b>💰 Ta cagnotte:</b> %s en bons d'achat\n\n", w.money(rc.AvailableBalance)) +
		"<b>Comment ça marche ?</b>\n" +
		"• Partage ton code avec des amis\n" +
		"• Ils obtiennent <b>10% de réduction</b> sur leur commande\n" +
		fmt.Sprintf("• Tu reçois <b>%s de bons d'achat</b> pour chaque %s dépensés par tes filleuls\n", w.money(10), w.money(100)) +
		"• Utilise tes bons d'achat pour payer tes prochaines commandes\n\n" +
		"<b>Tes statistiques:</b>\n" +
		fmt.Sprintf("👥 Personnes parrainées: %d\n", summary.Referrals) +
		fmt.Sprintf("💵 Total des bons gagnés: %s", w.money(rc.TotalEarnings))

	return w.show(ctx, s, messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons([][]ports.Button{
		messages.Row(messages.Link("📤 Partager mon code", w.shareURL(rc.Code))),
		messages.Row(homeButton()),
	}))
}

func (w *Wizard) shareURL(code string) string {
	invite := code
	if w.botUsername != "" {
		invite = fmt.Sprintf("https://t.me/%s?start=%s", w.botUsername, code)
	}
	q := url.Values{}
	q.Set("url", invite)
	q.Set("text", fmt.Sprintf("Utilise mon code FlashGrade %s pour obtenir 10%% de réduction !", code))
	return "https://t.me/share/url?" + q.Encode()
}

// HandleText routes free text according to the current step.
func (w *Wizard) HandleText(ctx context.Context, s *Session, text string) error {
	switch s.State.CurrentStep {
	case domain.StepEnterSubject:
		return w.SubmitSubject(ctx, s, text)
	case domain.StepEnterLength:
		return w.SubmitLength(ctx, s, text)
	case domain.StepEnterReferralCode:
		return w.SubmitReferralCode(ctx, s, text)
	case domain.StepSupport:
		return w.SupportMessage(ctx, s, text)
	case domain.StepHome:
		return w.Home(ctx, s)
	default:
		// Button or file steps: show the prompt again.
		return w.Render(ctx, s, s.State.CurrentStep)
	}
}

// HandleFile routes a photo or document according to the current step.
func (w *Wizard) HandleFile(ctx context.Context, s *Session, file *ports.FileInfo) error {
	switch {
	case s.State.CurrentStep == domain.StepAwaitingInstructionFile:
		return w.SubmitInstructionFile(ctx, s, file)
	case s.State.CurrentStep == domain.StepAwaitingPaymentProof && s.State.Draft.OrderNumber != nil:
		return w.SubmitPaymentProof(ctx, s, file)
	default:
		return w.fileOutsideFlow(ctx, s)
	}
}

func (w *Wizard) fileOutsideFlow(ctx context.Context, s *Session) error {
	return w.notice(ctx, s, messages.NewBuilder(s.chatID()).
		WithText("📎 Fichier reçu! Pour créer une commande, utilisez le menu principal.").
		WithInlineButtons([][]ports.Button{
			messages.Row(messages.Callback("📝 Nouvelle commande", CallbackNewOrder)),
			messages.Row(homeButton()),
		}))
}

// storeChatFile copies a chat attachment into the blob store.
func (w *Wizard) storeChatFile(ctx context.Context, file *ports.FileInfo, bucket, key string) (string, error) {
	fileURL, err := w.Bot.GetFileURL(ctx, file.FileID)
	if err != nil {
		return "", fmt.Errorf("resolve file url: %w", err)
	}
	fetched, err := w.Fetcher.Fetch(ctx, fileURL)
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	defer fetched.Body.Close()

	contentType := file.MimeType
	if contentType == "" {
		contentType = fetched.ContentType
	}
	return w.Files.Put(ctx, bucket, key, contentType, fetched.Body, fetched.Size)
}

var mimeExtensions = map[string]string{
	"application/pdf": "pdf",
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
}

func fileExtension(f *ports.FileInfo) string {
	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(f.FileName)), "."); ext != "" {
		return ext
	}
	if ext, ok := mimeExtensions[f.MimeType]; ok {
		return ext
	}
	if f.IsPhoto {
		return "jpg"
	}
	return "bin"
}
