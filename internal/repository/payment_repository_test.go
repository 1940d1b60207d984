package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/psb-api/internal/models"
)

func newPaymentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPaymentRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	payment := &models.Payment{
		StudentID:     "stu-1",
		Amount:        500000,
		Method:        models.PaymentMethodTransfer,
		Type:          models.PaymentTypeRegistration,
		ReceiptNumber: "RECEIPT-0a1b2c3d",
	}
	err := repo.Create(context.Background(), payment)
	require.NoError(t, err)
	require.NotEmpty(t, payment.ID)
	require.Equal(t, models.ReceiptStatusPending, payment.ReceiptStatus)
	require.False(t, payment.PaidAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryCreateDuplicateReceipt(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO payments`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "payments_receipt_number_key"})

	err := repo.Create(context.Background(), &models.Payment{
		StudentID:     "stu-1",
		Amount:        500000,
		Method:        models.PaymentMethodCash,
		Type:          models.PaymentTypeTuition,
		ReceiptNumber: "RECEIPT-0a1b2c3d",
	})
	require.ErrorIs(t, err, ErrDuplicateReceipt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryCreateOtherErrorPassesThrough(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO payments`).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &models.Payment{
		StudentID:     "stu-1",
		Amount:        500000,
		Method:        models.PaymentMethodCash,
		Type:          models.PaymentTypeTuition,
		ReceiptNumber: "RECEIPT-0a1b2c3d",
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrDuplicateReceipt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryUpdateReceiptFile(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET receipt_status = $2, receipt_path = $3 WHERE id = $1")).
		WithArgs("pay-1", models.ReceiptStatusReady, "2026-08/RECEIPT-0a1b2c3d.pdf").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateReceiptFile(context.Background(), "pay-1", "2026-08/RECEIPT-0a1b2c3d.pdf")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryUpdateReceiptFileMissingRow(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET receipt_status = $2, receipt_path = $3 WHERE id = $1")).
		WithArgs("missing", models.ReceiptStatusReady, "2026-08/x.pdf").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateReceiptFile(context.Background(), "missing", "2026-08/x.pdf")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryMarkReceiptFailed(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET receipt_status = $2 WHERE id = $1")).
		WithArgs("pay-1", models.ReceiptStatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkReceiptFailed(context.Background(), "pay-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListAmountRange(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "amount", "method", "type", "receipt_number",
		"receipt_status", "receipt_path", "paid_at", "created_at", "student_name", "parent_name",
	}).AddRow("pay-1", "stu-1", 500000.0, models.PaymentMethodTransfer, models.PaymentTypeTuition, "RECEIPT-0a1b2c3d", models.ReceiptStatusReady, nil, now, now, "Budi", "Siti")

	minAmount := 100000.0
	maxAmount := 900000.0
	mock.ExpectQuery(`(?s)SELECT py\.id.*WHERE py\.amount >= \$1 AND py\.amount <= \$2.*ORDER BY py\.paid_at DESC LIMIT 20 OFFSET 0`).
		WithArgs(minAmount, maxAmount).
		WillReturnRows(rows)
	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\).*WHERE py\.amount >= \$1 AND py\.amount <= \$2`).
		WithArgs(minAmount, maxAmount).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	payments, total, err := repo.List(context.Background(), models.PaymentFilter{MinAmount: &minAmount, MaxAmount: &maxAmount})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
