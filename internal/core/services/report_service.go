package services

import (
	"FlashGrade/internal/core/domain"
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/samber/lo"
)

// ReportService renders order listings for the dashboard export.
type ReportService struct {
	orders   *OrderService
	currency string
	now      func() time.Time
}

// NewReportService creates the export service.
func NewReportService(orders *OrderService, currency string) *ReportService {
	return &ReportService{orders: orders, currency: currency, now: time.Now}
}

// OrdersSummary aggregates a set of orders.
type OrdersSummary struct {
	Count       int
	Revenue     float64 // Final price of orders at least paid
	WalletSpent float64
	ByStatus    map[domain.OrderStatus]int
}

// Summarize computes totals over orders.
func Summarize(orders []*domain.Order) OrdersSummary {
	paid := lo.Filter(orders, func(o *domain.Order, _ int) bool { return o.Status.AtLeastPaid() })
	return OrdersSummary{
		Count:       len(orders),
		Revenue:     domain.RoundMoney(lo.SumBy(paid, func(o *domain.Order) float64 { return o.FinalPrice })),
		WalletSpent: domain.RoundMoney(lo.SumBy(orders, func(o *domain.Order) float64 { return o.WalletAmountUsed })),
		ByStatus: lo.MapValues(
			lo.GroupBy(orders, func(o *domain.Order) domain.OrderStatus { return o.Status }),
			func(list []*domain.Order, _ domain.OrderStatus) int { return len(list) },
		),
	}
}

// OrdersPDF renders the orders matching filter as an A4 landscape table.
func (s *ReportService) OrdersPDF(ctx context.Context, filter domain.OrderFilter) ([]byte, string, error) {
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, "", fmt.Errorf("list orders: %w", err)
	}
	generated := s.now()
	summary := Summarize(orders)

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 8, "FlashGrade", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	title := "Toutes les commandes"
	if filter.Status != nil {
		title = "Commandes : " + string(*filter.Status)
	}
	pdf.CellFormat(0, 6, tr(title), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Généré le "+generated.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, tr("Résumé"), "1", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(92, 7, fmt.Sprintf("Commandes : %d", summary.Count), "1", 0, "L", false, 0, "")
	pdf.CellFormat(92, 7, tr("Encaissé : "+s.money(summary.Revenue)), "1", 0, "L", false, 0, "")
	pdf.CellFormat(93, 7, tr("Portefeuille utilisé : "+s.money(summary.WalletSpent)), "1", 1, "L", false, 0, "")
	pdf.Ln(3)

	headers := []string{"N°", "Date", "Client", "Sujet", "Niveau", "Pages", "Délai", "Total", "Statut"}
	widths := []float64{28, 30, 30, 62, 24, 14, 32, 25, 32}

	pdf.SetFont("Arial", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, o := range orders {
		client := fmt.Sprintf("%d", o.TelegramUserID)
		if o.TelegramUsername != nil {
			client = "@" + *o.TelegramUsername
		}
		row := []string{
			o.OrderNumber,
			o.CreatedAt.Format("2006-01-02 15:04"),
			truncate(client, 18),
			truncate(o.Subject, 40),
			string(o.AcademicLevel),
			fmt.Sprintf("%d", o.LengthPages),
			string(o.Urgency),
			s.money(o.FinalPrice),
			string(o.Status),
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 6, tr(cell), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render pdf: %w", err)
	}
	filename := fmt.Sprintf("orders-%s.pdf", generated.Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func (s *ReportService) money(v float64) string {
	return fmt.Sprintf("%.2f %s", v, s.currency)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
