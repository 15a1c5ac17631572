package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-dcv-api/internal/models"
)

// AuditRepository records a traceability copy of every setpoint write on the
// application store. The pipeline never reads these rows back; the reporting
// pages and the CSV export do.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record merges an audit row keyed by (zone_code, facility_id,
// effective_time), so re-running a window refreshes the existing trace
// instead of growing it.
func (r *AuditRepository) Record(ctx context.Context, audit *models.SetpointAudit) error {
	if audit == nil {
		return fmt.Errorf("audit payload is nil")
	}
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = now
	}
	audit.UpdatedAt = now

	const query = `
INSERT INTO setpoint_audits (id, zone_code, facility_id, course_title, enrollment_total, value,
	effective_time, created_at, updated_at)
VALUES (:id, :zone_code, :facility_id, :course_title, :enrollment_total, :value,
	:effective_time, :created_at, :updated_at)
ON CONFLICT (zone_code, facility_id, effective_time) DO UPDATE SET
	course_title = EXCLUDED.course_title,
	enrollment_total = EXCLUDED.enrollment_total,
	value = EXCLUDED.value,
	updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, audit); err != nil {
		return fmt.Errorf("record setpoint audit: %w", err)
	}
	return nil
}

// List returns audit rows matching the filter.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.SetpointAudit, int, error) {
	base := "FROM setpoint_audits WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ZoneCode != "" {
		conditions = append(conditions, fmt.Sprintf("zone_code = $%d", len(args)+1))
		args = append(args, filter.ZoneCode)
	}
	if filter.FacilityID != "" {
		conditions = append(conditions, fmt.Sprintf("facility_id = $%d", len(args)+1))
		args = append(args, filter.FacilityID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("effective_time >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("effective_time < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count setpoint audits: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, zone_code, facility_id, course_title, enrollment_total, value,
	effective_time, created_at, updated_at %s
ORDER BY effective_time DESC LIMIT %d OFFSET %d`, base, size, offset)

	var audits []models.SetpointAudit
	if err := r.db.SelectContext(ctx, &audits, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list setpoint audits: %w", err)
	}
	return audits, total, nil
}
