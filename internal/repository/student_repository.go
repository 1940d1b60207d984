package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sekolahku/psb-api/internal/models"
)

// ConfirmOutcome reports what the guarded confirm statement decided.
type ConfirmOutcome int

const (
	ConfirmOK ConfirmOutcome = iota
	ConfirmNotFound
	ConfirmAlreadyConfirmed
	ConfirmCancelled
	ConfirmClassFull
)

// StudentRepository handles persistence of students and the registration
// workflow around them.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Register creates the student in PENDING state inside one transaction,
// creating the guardian first when no parent with the same phone exists.
// Capacity is deliberately not checked here: pending registrations may
// outnumber seats and are treated as a waiting pool.
func (r *StudentRepository) Register(ctx context.Context, student *models.Student, parent *models.Parent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()

	if parent.ID == "" {
		var existingID string
		err := tx.GetContext(ctx, &existingID, `SELECT id FROM parents WHERE phone = $1`, parent.Phone)
		switch {
		case err == nil:
			parent.ID = existingID
		case err == sql.ErrNoRows:
			parent.ID = uuid.NewString()
			parent.CreatedAt = now
			parent.UpdatedAt = now
			const insertParent = `INSERT INTO parents (id, full_name, phone, email, address, created_at, updated_at)
                VALUES (:id, :full_name, :phone, :email, :address, :created_at, :updated_at)`
			if _, err := tx.NamedExecContext(ctx, insertParent, parent); err != nil {
				return fmt.Errorf("create parent: %w", err)
			}
		default:
			return fmt.Errorf("find parent by phone: %w", err)
		}
	}

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.ParentID = parent.ID
	student.Status = models.RegistrationStatusPending
	student.CreatedAt = now
	student.UpdatedAt = now

	const insertStudent = `INSERT INTO students (id, full_name, gender, birth_date, academic_year, parent_id, class_offering_id, status, confirmed_at, created_at, updated_at)
        VALUES (:id, :full_name, :gender, :birth_date, :academic_year, :parent_id, :class_offering_id, :status, :confirmed_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertStudent, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit register tx: %w", err)
	}
	return nil
}

// ConfirmSeat flips a PENDING student to CONFIRMED only while confirmed
// occupancy is below the offering capacity. The offering row is locked for
// the duration of the check-then-write so two racing confirms for the last
// seat serialize and exactly one wins.
func (r *StudentRepository) ConfirmSeat(ctx context.Context, studentID string) (ConfirmOutcome, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var student struct {
		Status          models.RegistrationStatus `db:"status"`
		ClassOfferingID *string                   `db:"class_offering_id"`
	}
	err = tx.GetContext(ctx, &student, `SELECT status, class_offering_id FROM students WHERE id = $1 FOR UPDATE`, studentID)
	if err == sql.ErrNoRows {
		return ConfirmNotFound, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load student for confirm: %w", err)
	}

	switch student.Status {
	case models.RegistrationStatusConfirmed:
		return ConfirmAlreadyConfirmed, nil
	case models.RegistrationStatusCancelled:
		return ConfirmCancelled, nil
	}
	if student.ClassOfferingID == nil {
		return ConfirmNotFound, nil
	}

	var capacity int
	err = tx.GetContext(ctx, &capacity, `SELECT capacity FROM class_offerings WHERE id = $1 FOR UPDATE`, *student.ClassOfferingID)
	if err == sql.ErrNoRows {
		return ConfirmNotFound, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lock class offering: %w", err)
	}

	var confirmed int
	if err := tx.GetContext(ctx, &confirmed, `SELECT COUNT(*) FROM students WHERE class_offering_id = $1 AND status = 'CONFIRMED'`, *student.ClassOfferingID); err != nil {
		return 0, fmt.Errorf("count confirmed students: %w", err)
	}
	if confirmed >= capacity {
		return ConfirmClassFull, nil
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE students SET status = 'CONFIRMED', confirmed_at = $2, updated_at = $2 WHERE id = $1`, studentID, now); err != nil {
		return 0, fmt.Errorf("confirm student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit confirm tx: %w", err)
	}
	return ConfirmOK, nil
}

// FindByID returns a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, full_name, gender, birth_date, academic_year, parent_id, class_offering_id, status, confirmed_at, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindDetailByID returns a student with guardian and class context.
func (r *StudentRepository) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.full_name, s.gender, s.birth_date, s.academic_year, s.parent_id, s.class_offering_id, s.status, s.confirmed_at, s.created_at, s.updated_at,
        p.full_name AS parent_name, p.phone AS parent_phone, o.name AS class_name
        FROM students s
        JOIN parents p ON p.id = s.parent_id
        LEFT JOIN class_offerings o ON o.id = s.class_offering_id
        WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns students matching the filter with a total count for
// pagination. Free-text search matches student and guardian names
// case-insensitively; the remaining filters are ANDed together.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s
JOIN parents p ON p.id = s.parent_id
LEFT JOIN class_offerings o ON o.id = s.class_offering_id`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(p.full_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ClassOfferingID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_offering_id = $%d", len(args)+1))
		args = append(args, filter.ClassOfferingID)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("s.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.RegisteredFrom != nil {
		conditions = append(conditions, fmt.Sprintf("s.created_at >= $%d", len(args)+1))
		args = append(args, *filter.RegisteredFrom)
	}
	if filter.RegisteredTo != nil {
		conditions = append(conditions, fmt.Sprintf("s.created_at <= $%d", len(args)+1))
		args = append(args, *filter.RegisteredTo)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"full_name":   "s.full_name",
		"status":      "s.status",
		"created_at":  "s.created_at",
		"parent_name": "p.full_name",
		"class_name":  "o.name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	// A negative page size disables pagination, used by the CSV export.
	limit := ""
	if filter.PageSize >= 0 {
		page := models.NormalizePage(filter.Page)
		size := models.NormalizePageSize(filter.PageSize)
		limit = fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
	}

	query := fmt.Sprintf(`SELECT s.id, s.full_name, s.gender, s.birth_date, s.academic_year, s.parent_id, s.class_offering_id, s.status, s.confirmed_at, s.created_at, s.updated_at,
        p.full_name AS parent_name, p.phone AS parent_phone, o.name AS class_name
        %s ORDER BY %s %s%s`, base+clause, orderBy, order, limit)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// UpdateStatus sets the registration status of a student.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Expel destructively removes the student together with its flags and
// payments in one transaction. Irreversible.
func (r *StudentRepository) Expel(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin expel tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM student_flags WHERE student_id = $1`, id); err != nil {
		return fmt.Errorf("delete student flags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE student_id = $1`, id); err != nil {
		return fmt.Errorf("delete student payments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expel tx: %w", err)
	}
	return nil
}
