package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sekolahku/psb-api/internal/models"
)

// FlagRepository handles persistence of student flags.
type FlagRepository struct {
	db *sqlx.DB
}

// NewFlagRepository constructs the repository.
func NewFlagRepository(db *sqlx.DB) *FlagRepository {
	return &FlagRepository{db: db}
}

// Create persists a new active flag.
func (r *FlagRepository) Create(ctx context.Context, flag *models.StudentFlag) error {
	if flag.ID == "" {
		flag.ID = uuid.NewString()
	}
	flag.Active = true
	flag.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO student_flags (id, student_id, reason, active, resolved_at, created_at)
        VALUES (:id, :student_id, :reason, :active, :resolved_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, flag); err != nil {
		return fmt.Errorf("create student flag: %w", err)
	}
	return nil
}

// FindByID returns a flag by ID.
func (r *FlagRepository) FindByID(ctx context.Context, id string) (*models.StudentFlag, error) {
	const query = `SELECT id, student_id, reason, active, resolved_at, created_at FROM student_flags WHERE id = $1`
	var flag models.StudentFlag
	if err := r.db.GetContext(ctx, &flag, query, id); err != nil {
		return nil, err
	}
	return &flag, nil
}

// Resolve deactivates an active flag and stamps the resolution time.
func (r *FlagRepository) Resolve(ctx context.Context, id string, resolvedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE student_flags SET active = FALSE, resolved_at = $2 WHERE id = $1 AND active = TRUE`, id, resolvedAt)
	if err != nil {
		return fmt.Errorf("resolve student flag: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByStudent returns all flags for a student, newest first.
func (r *FlagRepository) ListByStudent(ctx context.Context, studentID string, activeOnly bool) ([]models.StudentFlag, error) {
	query := `SELECT id, student_id, reason, active, resolved_at, created_at FROM student_flags WHERE student_id = $1`
	if activeOnly {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY created_at DESC`
	var flags []models.StudentFlag
	if err := r.db.SelectContext(ctx, &flags, query, studentID); err != nil {
		return nil, fmt.Errorf("list student flags: %w", err)
	}
	return flags, nil
}
