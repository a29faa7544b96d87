package wizard

import (
	"FlashGrade/internal/bot/messages"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/core/pricing"
	"context"
	"fmt"
	"html"
	"math"
	"strings"
)

// Callback data carried by the inline keyboards.
const (
	CallbackHome              = "home"
	CallbackBack              = "back"
	CallbackNewOrder          = "new_order"
	CallbackTypeInstruction   = "type_instruction"
	CallbackUploadInstruction = "upload_instruction"
	CallbackReferral          = "referral"
	CallbackPricing           = "pricing"
	CallbackSupport           = "support"
	CallbackLevelPrefix       = "level_"
	CallbackUrgencyPrefix     = "urgency_"
	CallbackSkipReferral      = "skip_referral"
	CallbackUseSuggestedCode  = "use_suggested_code"
	CallbackConfirmOrder      = "confirm_payment"
	CallbackUploadProof       = "upload_proof"
)

var levelIcons = map[domain.AcademicLevel]string{
	domain.LevelCollege:    "🏫",
	domain.LevelHighSchool: "🎓",
	domain.LevelUniversity: "🏛️",
	domain.LevelMaster:     "👨‍🎓",
	domain.LevelPhD:        "🔬",
}

const orderHeader = "<b>📝 Nouvelle Commande</b>\n\n"

func homeButton() ports.Button {
	return messages.Callback("🏠 Accueil", CallbackHome)
}

func navRow() []ports.Button {
	return messages.Row(messages.Callback("⬅️ Retour", CallbackBack), homeButton())
}

func (w *Wizard) money(x float64) string {
	return fmt.Sprintf("%s%s", formatAmount(x), w.payment.Currency)
}

// formatAmount drops trailing zeros: 165 -> "165", 148.5 -> "148.50".
func formatAmount(x float64) string {
	if x == math.Trunc(x) {
		return fmt.Sprintf("%.0f", x)
	}
	return fmt.Sprintf("%.2f", x)
}

func multiplierLabel(m float64) string {
	pct := int(math.Round((m - 1) * 100))
	switch {
	case pct == 0:
		return ""
	case pct > 0:
		return fmt.Sprintf("+%d%%", pct)
	default:
		return fmt.Sprintf("%d%%", pct)
	}
}

func (w *Wizard) levelLabel(id *domain.AcademicLevel) string {
	if id == nil {
		return "?"
	}
	l, ok := w.Pricing.Level(*id)
	if !ok {
		return string(*id)
	}
	return strings.TrimSpace(levelIcons[l.ID] + " " + l.Label)
}

func (w *Wizard) tierLabel(id *domain.UrgencyTier) string {
	if id == nil {
		return "?"
	}
	t, ok := w.Pricing.Tier(*id)
	if !ok {
		return string(*id)
	}
	return tierText(t)
}

func tierText(t pricing.Tier) string {
	if pct := multiplierLabel(t.Multiplier); pct != "" {
		return fmt.Sprintf("%s (%s)", t.Label, pct)
	}
	return t.Label + " (Standard)"
}

func (w *Wizard) renderHome(ctx context.Context, s *Session) error {
	text := "📚 <b>FlashGrade - Services Académiques</b>\n\n" +
		"Plateforme de rédaction académique professionnelle.\n\n" +
		"<b>Services disponibles :</b>\n" +
		"• Rédaction de travaux académiques\n" +
		"• Recherche et analyse\n" +
		"• Révisions et corrections\n\n" +
		"<b>Garanties :</b>\n" +
		"• Travail original (SANS IA) et personnalisé\n" +
		"• Respect des délais convenus\n" +
		"• Support technique inclus\n\n" +
		"Sélectionnez l'action souhaitée :"

	b := messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons([][]ports.Button{
		messages.Row(messages.Callback("📝 Nouvelle commande", CallbackNewOrder)),
		messages.Row(messages.Callback("🎁 Parrainage", CallbackReferral)),
		messages.Row(messages.Callback("💰 Tarification", CallbackPricing)),
		messages.Row(messages.Callback("💬 Support", CallbackSupport)),
	})
	return w.show(ctx, s, b)
}

func (w *Wizard) renderChooseInstructionMethod(ctx context.Context, s *Session) error {
	text := orderHeader +
		"<b>Étape 1/5: Consigne du devoir</b>\n\n" +
		"Comment souhaitez-vous fournir votre consigne ?\n\n" +
		"📝 <b>Écrire</b> : Tapez votre consigne\n" +
		"📎 <b>Upload</b> : Envoyez une photo ou PDF de votre consigne\n\n" +
		"<i>💡 L'upload est souvent plus rapide !</i>"

	b := messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons([][]ports.Button{
		messages.Row(messages.Callback("📝 Écrire la consigne", CallbackTypeInstruction)),
		messages.Row(messages.Callback("📎 Uploader un fichier", CallbackUploadInstruction)),
		navRow(),
	})
	return w.show(ctx, s, b)
}

func (w *Wizard) renderEnterSubject(ctx context.Context, s *Session) error {
	text := orderHeader +
		"<b>Étape 1/5: Consigne</b>\n\n" +
		"Décrivez votre consigne de manière détaillée:"
	b := messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons([][]ports.Button{navRow()})
	return w.show(ctx, s, b)
}

func (w *Wizard) renderAwaitingInstructionFile(ctx context.Context, s *Session) error {
	text := "<b>📎 Upload de la consigne</b>\n\n" +
		"Envoyez-moi votre consigne:\n" +
		"• 📸 Photo du document\n" +
		"• 📄 Fichier PDF\n" +
		"• 🖼️ Capture d'écran\n\n" +
		"<i>Un seul fichier suffit.</i>"
	b := messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons([][]ports.Button{navRow()})
	return w.show(ctx, s, b)
}

func (w *Wizard) renderSelectLevel(ctx context.Context, s *Session) error {
	received := "Consigne reçue ✅"
	if s.State.Draft.InstructionFilePath != nil {
		received = "Fichier reçu ✅"
	}
	text := orderHeader +
		"<b>Étape 2/5: Niveau académique</b>\n\n" +
		received + "\n\n" +
		"Sélectionnez votre niveau académique:"

	rows := make([][]ports.Button, 0, len(w.Pricing.Levels())+1)
	for _, l := range w.Pricing.Levels() {
		label := fmt.Sprintf("%s (%s/page)", w.levelLabel(&l.ID), w.money(l.PerPage))
		rows = append(rows, messages.Row(messages.Callback(label, CallbackLevelPrefix+string(l.ID))))
	}
	rows = append(rows, navRow())

	return w.show(ctx, s, messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons(rows))
}

func (w *Wizard) renderEnterLength(ctx context.Context, s *Session) error {
	rate := ""
	if d := s.State.Draft; d.Level != nil {
		if l, ok := w.Pricing.Level(*d.Level); ok {
			rate = " - " + w.money(l.PerPage) + "/page"
		}
	}
	text := orderHeader +
		"<b>Étape 3/5: Longueur</b>\n\n" +
		"Niveau: " + w.levelLabel(s.State.Draft.Level) + rate + "\n\n" +
		"Indiquez le nombre de pages (1 page = ~300 mots):"
	b := messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons([][]ports.Button{navRow()})
	return w.show(ctx, s, b)
}

func (w *Wizard) renderSelectUrgency(ctx context.Context, s *Session) error {
	pages := 0
	if s.State.Draft.Pages != nil {
		pages = *s.State.Draft.Pages
	}
	text := orderHeader +
		"<b>Étape 4/5: Urgence</b>\n\n" +
		fmt.Sprintf("%d page(s) - %s\n\n", pages, w.levelLabel(s.State.Draft.Level)) +
		"Sélectionnez le délai souhaité:"

	rows := make([][]ports.Button, 0, len(w.Pricing.Tiers())+1)
	for _, t := range w.Pricing.Tiers() {
		rows = append(rows, messages.Row(messages.Callback(tierText(t), CallbackUrgencyPrefix+string(t.ID))))
	}
	rows = append(rows, navRow())

	return w.show(ctx, s, messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons(rows))
}

func (w *Wizard) renderEnterReferralCode(ctx context.Context, s *Session) error {
	text := "<b>📝 Code de parrainage (optionnel)</b>\n\n" +
		"Si vous avez un code de parrainage, envoyez-le maintenant pour bénéficier d'une réduction de 10% !\n\n" +
		"Sinon, cliquez sur \"Continuer sans code\" 👇"

	rows := [][]ports.Button{}
	if code := s.State.Draft.SuggestedReferralCode; code != nil {
		text += fmt.Sprintf("\n\n🎁 Code reçu via votre lien d'invitation : <code>%s</code>", html.EscapeString(*code))
		rows = append(rows, messages.Row(messages.Callback("🎁 Utiliser "+*code, CallbackUseSuggestedCode)))
	}
	rows = append(rows,
		messages.Row(messages.Callback("➡️ Continuer sans code", CallbackSkipReferral)),
		navRow(),
	)
	return w.show(ctx, s, messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons(rows))
}

func (w *Wizard) renderConfirmOrder(ctx context.Context, s *Session) error {
	d := s.State.Draft
	quote, err := w.Orders.Quote(ctx, s.User.TelegramUserID, d)
	if err != nil {
		return err
	}

	instructions := "📎 <i>Fichier uploadé</i>"
	if d.Subject != nil {
		instructions = html.EscapeString(*d.Subject)
	}
	pages := 0
	if d.Pages != nil {
		pages = *d.Pages
	}

	var price strings.Builder
	if d.HasReferral() && d.Pricing != nil {
		fmt.Fprintf(&price, "<b>💰 Prix initial:</b> %s\n", w.money(d.Pricing.FinalPrice))
		fmt.Fprintf(&price, "<b>🎁 Réduction parrainage (-10%%):</b> -%s\n", w.money(d.ReferralDiscount))
		fmt.Fprintf(&price, "<b>💳 Prix final:</b> %s", w.money(quote.FinalPrice))
	} else {
		fmt.Fprintf(&price, "<b>💰 Prix:</b> %s", w.money(quote.FinalPrice))
	}
	if quote.Wallet > 0 {
		fmt.Fprintf(&price, "\n\n<b>💼 Bons d'achat utilisés automatiquement:</b> %s", w.money(quote.Wallet))
		fmt.Fprintf(&price, "\n<b>🎯 Reste à payer:</b> %s", w.money(quote.AmountDue))
	}

	text := "<b>📝 Récapitulatif de votre commande</b>\n\n" +
		"<b>Consigne:</b> " + instructions + "\n" +
		"<b>Niveau:</b> " + w.levelLabel(d.Level) + "\n" +
		fmt.Sprintf("<b>Longueur:</b> %d page(s)\n", pages) +
		"<b>Délai:</b> " + w.tierLabel(d.Urgency) + "\n\n" +
		price.String() + "\n\n" +
		"<b>Tout est correct ?</b>"

	b := messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons([][]ports.Button{
		messages.Row(messages.Callback("✅ Confirmer et payer", CallbackConfirmOrder)),
		navRow(),
	})
	return w.show(ctx, s, b)
}

func (w *Wizard) renderAwaitingPaymentProof(ctx context.Context, s *Session) error {
	number := ""
	if s.State.Draft.OrderNumber != nil {
		number = fmt.Sprintf("\n\n<b>N° commande:</b> <code>%s</code>", *s.State.Draft.OrderNumber)
	}
	text := "<b>📷 Envoi de la preuve de paiement</b>\n\n" +
		"Envoyez-moi une photo de votre preuve de paiement (capture d'écran de la transaction).\n\n" +
		"Vous pouvez :\n" +
		"• 📸 Prendre une photo\n" +
		"• 🖼️ Envoyer une image depuis votre galerie\n" +
		"• 📋 Faire une capture d'écran et l'envoyer\n\n" +
		"<i>Une seule image suffit.</i>" + number

	b := messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons([][]ports.Button{
		messages.Row(messages.Callback("💬 Support", CallbackSupport)),
		messages.Row(homeButton()),
	})
	return w.show(ctx, s, b)
}

func (w *Wizard) renderSupport(ctx context.Context, s *Session) error {
	text := "<b>💬 Support Client</b>\n\n" +
		"Envoyez-nous votre message et notre équipe vous répondra rapidement.\n\n" +
		"<i>Tous les messages sont privés et sécurisés.</i>"
	b := messages.NewBuilder(s.chatID()).WithText(text).WithInlineButtons([][]ports.Button{navRow()})
	return w.show(ctx, s, b)
}

func (w *Wizard) pricingText() string {
	var sb strings.Builder
	sb.WriteString("<b>💰 Tarification</b>\n\n<b>Prix par page (300 mots) :</b>\n")
	for _, l := range w.Pricing.Levels() {
		fmt.Fprintf(&sb, "%s : %s\n", w.levelLabel(&l.ID), w.money(l.PerPage))
	}
	sb.WriteString("\n<b>Multiplicateurs selon le délai :</b>\n")
	for _, t := range w.Pricing.Tiers() {
		pct := multiplierLabel(t.Multiplier)
		if pct == "" {
			pct = "Prix standard"
		}
		fmt.Fprintf(&sb, "%s : %s\n", t.Label, pct)
	}
	sb.WriteString("\n<i>Prix final = (Prix par page × Nombre de pages) × Multiplicateur de délai</i>")
	return sb.String()
}
