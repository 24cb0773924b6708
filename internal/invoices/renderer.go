package invoices

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/solarflow/solarshop-backend/internal/settings"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
)

const (
	pageWidth   = 180.0
	lineHeight  = 6.0
	contentType = "application/pdf"
)

type badge struct {
	label   string
	r, g, b int
}

var badges = map[enums.PaymentStatus]badge{
	enums.PaymentStatusPaid:     {label: "PAID", r: 34, g: 139, b: 34},
	enums.PaymentStatusRefunded: {label: "REFUNDED", r: 110, g: 110, b: 110},
	enums.PaymentStatusFailed:   {label: "FAILED", r: 178, g: 34, b: 34},
	enums.PaymentStatusOverdue:  {label: "OVERDUE", r: 204, g: 102, b: 0},
}

func badgeFor(status enums.PaymentStatus) badge {
	if b, ok := badges[status]; ok {
		return b
	}
	return badge{label: "UNPAID", r: 178, g: 34, b: 34}
}

// FileName is the storage name of an invoice PDF.
func FileName(invoiceNumber string) string {
	return "invoice_" + invoiceNumber + ".pdf"
}

// RenderPDF draws the invoice with the fixed letterhead, bill-to block, item table, totals and payment badge.
// inv.Order must be loaded with its items.
func RenderPDF(inv *models.Invoice, company settings.Company) ([]byte, error) {
	if inv == nil || inv.Order == nil {
		return nil, fmt.Errorf("invoice with order required")
	}
	order := inv.Order

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, true)
	pdf.SetCreationDate(inv.IssuedAt)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	companyName := company.Name
	if companyName == "" {
		companyName = "SolarShop"
	}
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(pageWidth/2, 9, tr(companyName), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(pageWidth/2, 9, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	left := compact(company.Address, company.Email, company.Phone)
	if company.TaxID != "" {
		left = append(left, "Tax ID: "+company.TaxID)
	}
	right := []string{
		"Invoice: " + inv.InvoiceNumber,
		"Order: " + order.OrderNumber,
		"Issued: " + inv.IssuedAt.UTC().Format("2006-01-02"),
	}
	for i := 0; i < max(len(left), len(right)); i++ {
		pdf.CellFormat(pageWidth/2, 5, tr(at(left, i)), "", 0, "L", false, 0, "")
		pdf.CellFormat(pageWidth/2, 5, tr(at(right, i)), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(pageWidth, lineHeight, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range compact(order.CustomerName, order.CustomerEmail, order.CustomerPhone, order.InstallationAddress) {
		pdf.MultiCell(pageWidth, 5, tr(line), "", "L", false)
	}
	pdf.Ln(6)

	cols := []float64{95, 20, 32.5, 32.5}
	pdf.SetFillColor(235, 235, 235)
	pdf.SetFont("Helvetica", "B", 10)
	for i, head := range []string{"Item", "Qty", "Unit price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(cols[i], 8, head, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range order.Items {
		pdf.CellFormat(cols[0], 7, tr(truncate(item.Name, 55)), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 7, fmt.Sprintf("%d", item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[2], 7, money(item.Price, inv.Currency), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 7, money(item.LineTotal(), inv.Currency), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	labelWidth := cols[0] + cols[1] + cols[2]
	totalsRow := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelWidth, 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 7, value, "", 1, "R", false, 0, "")
	}
	totalsRow("Subtotal", money(inv.Subtotal, inv.Currency), false)
	totalsRow(fmt.Sprintf("Tax (%s%%)", inv.TaxRate.Mul(decimal.NewFromInt(100)).StringFixed(2)), money(inv.Tax, inv.Currency), false)
	totalsRow("Total", money(inv.Total, inv.Currency), true)
	pdf.Ln(6)

	b := badgeFor(inv.PaymentStatus)
	pdf.SetFillColor(b.r, b.g, b.b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(40, 9, b.label, "", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)

	if inv.PaymentStatus != enums.PaymentStatusPaid && company.BankDetails != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(pageWidth, lineHeight, "Payment instructions", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(pageWidth, 5, tr(company.BankDetails), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func money(amount decimal.Decimal, currency string) string {
	return strings.TrimSpace(currency + " " + amount.StringFixed(2))
}

func compact(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
