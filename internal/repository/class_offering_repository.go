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

// ClassOfferingRepository manages persistence for class offerings.
type ClassOfferingRepository struct {
	db *sqlx.DB
}

// NewClassOfferingRepository constructs a new class offering repository.
func NewClassOfferingRepository(db *sqlx.DB) *ClassOfferingRepository {
	return &ClassOfferingRepository{db: db}
}

// List returns offerings matching filter criteria.
func (r *ClassOfferingRepository) List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOffering, int, error) {
	base := "FROM class_offerings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d)", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":          true,
		"academic_year": true,
		"level":         true,
		"capacity":      true,
		"created_at":    true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := models.NormalizePage(filter.Page)
	size := models.NormalizePageSize(filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, academic_year, level, time_slot, capacity, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var offerings []models.ClassOffering
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class offerings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count class offerings: %w", err)
	}
	return offerings, total, nil
}

// FindByID returns an offering by ID.
func (r *ClassOfferingRepository) FindByID(ctx context.Context, id string) (*models.ClassOffering, error) {
	const query = `SELECT id, name, academic_year, level, time_slot, capacity, created_at, updated_at FROM class_offerings WHERE id = $1`
	var offering models.ClassOffering
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	return &offering, nil
}

// ListWithOccupancy returns every offering for the academic year together
// with its confirmed occupancy and derived availability. Occupancy is
// counted at read time, never stored.
func (r *ClassOfferingRepository) ListWithOccupancy(ctx context.Context, academicYear string) ([]models.ClassAvailability, error) {
	const query = `SELECT o.id, o.name, o.academic_year, o.level, o.time_slot, o.capacity, o.created_at, o.updated_at,
        COALESCE(s.confirmed, 0) AS confirmed_count,
        o.capacity - COALESCE(s.confirmed, 0) AS available_spots
        FROM class_offerings o
        LEFT JOIN (
            SELECT class_offering_id, COUNT(*) AS confirmed
            FROM students
            WHERE status = 'CONFIRMED'
            GROUP BY class_offering_id
        ) s ON s.class_offering_id = o.id
        WHERE o.academic_year = $1
        ORDER BY o.name ASC`
	var availability []models.ClassAvailability
	if err := r.db.SelectContext(ctx, &availability, query, academicYear); err != nil {
		return nil, fmt.Errorf("list offering occupancy: %w", err)
	}
	return availability, nil
}

// CountConfirmed returns the confirmed occupancy for one offering.
func (r *ClassOfferingRepository) CountConfirmed(ctx context.Context, offeringID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE class_offering_id = $1 AND status = 'CONFIRMED'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, offeringID); err != nil {
		return 0, fmt.Errorf("count confirmed students: %w", err)
	}
	return count, nil
}

// CountStudents returns how many students reference the offering in any status.
func (r *ClassOfferingRepository) CountStudents(ctx context.Context, offeringID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE class_offering_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, offeringID); err != nil {
		return 0, fmt.Errorf("count referencing students: %w", err)
	}
	return count, nil
}

// Create persists a new offering.
func (r *ClassOfferingRepository) Create(ctx context.Context, offering *models.ClassOffering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if offering.CreatedAt.IsZero() {
		offering.CreatedAt = now
	}
	offering.UpdatedAt = now
	const query = `INSERT INTO class_offerings (id, name, academic_year, level, time_slot, capacity, created_at, updated_at)
        VALUES (:id, :name, :academic_year, :level, :time_slot, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("create class offering: %w", err)
	}
	return nil
}

// Update persists descriptive fields of an offering. Capacity changes go
// through UpdateCapacityGuarded.
func (r *ClassOfferingRepository) Update(ctx context.Context, offering *models.ClassOffering) error {
	const query = `UPDATE class_offerings SET name = $2, academic_year = $3, level = $4, time_slot = $5, updated_at = $6 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, offering.ID, offering.Name, offering.AcademicYear, offering.Level, offering.TimeSlot, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update class offering: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateCapacityGuarded lowers or raises capacity in one conditional
// statement: the write only lands when the new capacity still covers the
// current confirmed occupancy. Returns false when the guard rejected it.
func (r *ClassOfferingRepository) UpdateCapacityGuarded(ctx context.Context, id string, capacity int) (bool, error) {
	const query = `UPDATE class_offerings SET capacity = $2, updated_at = $3
        WHERE id = $1
        AND $2 >= (SELECT COUNT(*) FROM students WHERE class_offering_id = $1 AND status = 'CONFIRMED')`
	res, err := r.db.ExecContext(ctx, query, id, capacity, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update offering capacity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update offering capacity: %w", err)
	}
	return affected == 1, nil
}

// Delete removes an offering. The service guards against referencing students first.
func (r *ClassOfferingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_offerings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class offering: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
