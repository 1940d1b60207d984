package models

import "time"

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

// Accepted payment methods.
const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodQRIS     PaymentMethod = "QRIS"
)

// PaymentType distinguishes one-off registration fees from periodic
// tuition payments.
type PaymentType string

// Payment types.
const (
	PaymentTypeRegistration PaymentType = "REGISTRATION"
	PaymentTypeTuition      PaymentType = "TUITION"
)

// ReceiptStatus tracks asynchronous receipt rendering.
type ReceiptStatus string

// Receipt rendering states.
const (
	ReceiptStatusPending ReceiptStatus = "PENDING"
	ReceiptStatusReady   ReceiptStatus = "READY"
	ReceiptStatusFailed  ReceiptStatus = "FAILED"
)

// Payment is a monetary transaction tied to exactly one student. The
// receipt number is minted at insert time and unique across all payments.
type Payment struct {
	ID            string        `db:"id" json:"id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	Amount        float64       `db:"amount" json:"amount"`
	Method        PaymentMethod `db:"method" json:"method"`
	Type          PaymentType   `db:"type" json:"type"`
	ReceiptNumber string        `db:"receipt_number" json:"receipt_number"`
	ReceiptStatus ReceiptStatus `db:"receipt_status" json:"receipt_status"`
	ReceiptPath   *string       `db:"receipt_path" json:"-"`
	PaidAt        time.Time     `db:"paid_at" json:"paid_at"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// PaymentDetail enriches Payment with student and guardian names for
// listings and receipt rendering.
type PaymentDetail struct {
	Payment
	StudentName string `db:"student_name" json:"student_name"`
	ParentName  string `db:"parent_name" json:"parent_name"`
}

// PaymentFilter defines the list filters for payments.
type PaymentFilter struct {
	StudentID string
	Method    PaymentMethod
	Type      PaymentType
	MinAmount *float64
	MaxAmount *float64
	PaidFrom  *time.Time
	PaidTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
