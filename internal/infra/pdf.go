package infra

// pdf.go renders the optimizer's shopping plan as an A4 list: one block per
// provider with its contact line, item rows and an estimated subtotal.

import (
	"fmt"
	"io"
	"time"

	"purchaseledger/internal/service"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// WriteShoppingListPDF writes plan to w.
func WriteShoppingListPDF(w io.Writer, plan []service.ShoppingPlanGroup, generatedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Core fonts are cp1252; names carry accents and ñ.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30
	nameW := contentW * 0.75
	costW := contentW - nameW

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr("Lista de compras"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, generatedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	grand := decimal.Zero
	for _, group := range plan {
		// ── Provider block ───────────────────────────────────────────────────
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(contentW, 7, tr(group.ProviderName), "", 1, "L", true, 0, "")

		contact := ""
		if group.ProviderAddress != nil && *group.ProviderAddress != "" {
			contact = *group.ProviderAddress
		}
		if group.ProviderPhone != nil && *group.ProviderPhone != "" {
			if contact != "" {
				contact += "  ·  "
			}
			contact += *group.ProviderPhone
		}
		if contact != "" {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.CellFormat(contentW, 5, tr(contact), "", 1, "L", false, 0, "")
		}

		pdf.SetFont("Helvetica", "", 9)
		for _, item := range group.Items {
			pdf.CellFormat(nameW, 6, tr(item.Name), "B", 0, "L", false, 0, "")
			pdf.CellFormat(costW, 6, money(item.EstCost), "B", 1, "R", false, 0, "")
		}

		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(nameW, 6, "Subtotal estimado", "", 0, "R", false, 0, "")
		pdf.CellFormat(costW, 6, money(group.TotalEst), "", 1, "R", false, 0, "")
		pdf.Ln(3)

		grand = grand.Add(group.TotalEst)
	}

	// ── Total ────────────────────────────────────────────────────────────────
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(nameW, 8, "TOTAL ESTIMADO", "", 0, "R", false, 0, "")
	pdf.CellFormat(costW, 8, money(grand), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: render shopping list: %w", err)
	}
	return nil
}

func money(d decimal.Decimal) string {
	return "$ " + d.StringFixed(2)
}
