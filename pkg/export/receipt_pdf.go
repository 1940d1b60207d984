package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptDocument holds the fields printed on a payment receipt.
type ReceiptDocument struct {
	ReceiptNumber string
	StudentName   string
	GuardianName  string
	Amount        float64
	Method        string
	Type          string
	PaidAt        string
	SchoolName    string
}

// ReceiptPDF renders payment receipts as single-page PDF documents.
type ReceiptPDF struct{}

// NewReceiptPDF constructs a receipt renderer.
func NewReceiptPDF() *ReceiptPDF {
	return &ReceiptPDF{}
}

// Render produces the PDF bytes for a receipt.
func (e *ReceiptPDF) Render(doc ReceiptDocument) ([]byte, error) {
	if doc.ReceiptNumber == "" {
		return nil, fmt.Errorf("receipt requires a receipt number")
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	title := doc.SchoolName
	if title == "" {
		title = "PAYMENT RECEIPT"
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 9, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Official Payment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Receipt No.", doc.ReceiptNumber},
		{"Student", doc.StudentName},
		{"Guardian", doc.GuardianName},
		{"Payment Type", doc.Type},
		{"Method", doc.Method},
		{"Amount", fmt.Sprintf("%.2f", doc.Amount)},
		{"Paid At", doc.PaidAt},
	}

	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(40, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, row[1], "1", 1, "", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "This receipt is system generated and valid without a signature.", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
