package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sekolahku/psb-api/internal/models"
)

// ErrDuplicateReceipt signals a receipt number collision on insert.
var ErrDuplicateReceipt = errors.New("duplicate receipt number")

const pqUniqueViolation = "23505"

// PaymentRepository handles persistence of payments and their receipts.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create persists a payment. A unique-violation on the receipt number is
// surfaced as ErrDuplicateReceipt so the caller can re-mint and retry.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.PaidAt.IsZero() {
		payment.PaidAt = now
	}
	payment.CreatedAt = now
	if payment.ReceiptStatus == "" {
		payment.ReceiptStatus = models.ReceiptStatusPending
	}

	const query = `INSERT INTO payments (id, student_id, amount, method, type, receipt_number, receipt_status, receipt_path, paid_at, created_at)
        VALUES (:id, :student_id, :amount, :method, :type, :receipt_number, :receipt_status, :receipt_path, :paid_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateReceipt
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByID returns a payment by ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, student_id, amount, method, type, receipt_number, receipt_status, receipt_path, paid_at, created_at FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindDetailByID returns a payment with student and guardian names.
func (r *PaymentRepository) FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	const query = `SELECT py.id, py.student_id, py.amount, py.method, py.type, py.receipt_number, py.receipt_status, py.receipt_path, py.paid_at, py.created_at,
        s.full_name AS student_name, p.full_name AS parent_name
        FROM payments py
        JOIN students s ON s.id = py.student_id
        JOIN parents p ON p.id = s.parent_id
        WHERE py.id = $1`
	var detail models.PaymentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns payments matching the filter with a total count.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	base := `FROM payments py
JOIN students s ON s.id = py.student_id
JOIN parents p ON p.id = s.parent_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("py.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Method != "" {
		conditions = append(conditions, fmt.Sprintf("py.method = $%d", len(args)+1))
		args = append(args, filter.Method)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("py.type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.MinAmount != nil {
		conditions = append(conditions, fmt.Sprintf("py.amount >= $%d", len(args)+1))
		args = append(args, *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		conditions = append(conditions, fmt.Sprintf("py.amount <= $%d", len(args)+1))
		args = append(args, *filter.MaxAmount)
	}
	if filter.PaidFrom != nil {
		conditions = append(conditions, fmt.Sprintf("py.paid_at >= $%d", len(args)+1))
		args = append(args, *filter.PaidFrom)
	}
	if filter.PaidTo != nil {
		conditions = append(conditions, fmt.Sprintf("py.paid_at <= $%d", len(args)+1))
		args = append(args, *filter.PaidTo)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"paid_at":      "py.paid_at",
		"amount":       "py.amount",
		"student_name": "s.full_name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "py.paid_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := models.NormalizePage(filter.Page)
	size := models.NormalizePageSize(filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT py.id, py.student_id, py.amount, py.method, py.type, py.receipt_number, py.receipt_status, py.receipt_path, py.paid_at, py.created_at,
        s.full_name AS student_name, p.full_name AS parent_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// UpdateReceiptFile marks a rendered receipt as ready with its stored path.
func (r *PaymentRepository) UpdateReceiptFile(ctx context.Context, id, path string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET receipt_status = $2, receipt_path = $3 WHERE id = $1`, id, models.ReceiptStatusReady, path)
	if err != nil {
		return fmt.Errorf("update receipt file: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkReceiptFailed records that rendering gave up after retries.
func (r *PaymentRepository) MarkReceiptFailed(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE payments SET receipt_status = $2 WHERE id = $1`, id, models.ReceiptStatusFailed); err != nil {
		return fmt.Errorf("mark receipt failed: %w", err)
	}
	return nil
}
