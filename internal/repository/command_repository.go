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

	"github.com/noah-isme/campus-dcv-api/internal/models"
)

// ErrCommandDispatched signals an attempt to modify a command the controller
// has already picked up. Callers treat it as a no-op, not a failure.
var ErrCommandDispatched = errors.New("setpoint command already dispatched")

// CommandRepository writes to the external BAS command queue. It holds its
// own connection pool; the queue lives in a separate database from the
// application store.
type CommandRepository struct {
	db *sqlx.DB
}

// NewCommandRepository constructs repository.
func NewCommandRepository(db *sqlx.DB) *CommandRepository {
	return &CommandRepository{db: db}
}

// FindByPointAndTime looks up an existing command by its natural key: the
// BAS point name and the controller-local effective time. Returns nil when
// no command exists.
func (r *CommandRepository) FindByPointAndTime(ctx context.Context, pointName string, effective time.Time) (*models.SetpointCommand, error) {
	const query = `SELECT id, point_name, effective_time, value, dispatched, created_at, updated_at
FROM setpoint_commands WHERE point_name = $1 AND effective_time = $2`
	var cmd models.SetpointCommand
	if err := r.db.GetContext(ctx, &cmd, query, pointName, effective); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find setpoint command: %w", err)
	}
	return &cmd, nil
}

// FindByID loads a command by identifier.
func (r *CommandRepository) FindByID(ctx context.Context, id string) (*models.SetpointCommand, error) {
	const query = `SELECT id, point_name, effective_time, value, dispatched, created_at, updated_at
FROM setpoint_commands WHERE id = $1`
	var cmd models.SetpointCommand
	if err := r.db.GetContext(ctx, &cmd, query, id); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// Insert queues a new command. Commands are born undispatched.
func (r *CommandRepository) Insert(ctx context.Context, cmd *models.SetpointCommand) error {
	if cmd == nil {
		return fmt.Errorf("command payload is nil")
	}
	if cmd.PointName == "" {
		return fmt.Errorf("command point name is required")
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cmd.Dispatched = false
	cmd.CreatedAt = now
	cmd.UpdatedAt = now

	const query = `
INSERT INTO setpoint_commands (id, point_name, effective_time, value, dispatched, created_at, updated_at)
VALUES (:id, :point_name, :effective_time, :value, :dispatched, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, cmd); err != nil {
		return fmt.Errorf("insert setpoint command: %w", err)
	}
	return nil
}

// UpdateValue rewrites the value and effective time of an undispatched
// command. The dispatched guard lives in the statement itself so a command
// picked up between the caller's read and this write stays frozen.
func (r *CommandRepository) UpdateValue(ctx context.Context, id string, value float64, effective time.Time) error {
	const query = `UPDATE setpoint_commands
SET value = $2, effective_time = $3, updated_at = $4
WHERE id = $1 AND dispatched = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, value, effective, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update setpoint command: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("setpoint command rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCommandDispatched
	}
	return nil
}

// List returns queued commands matching the filter for the reporting pages.
func (r *CommandRepository) List(ctx context.Context, filter models.CommandFilter) ([]models.SetpointCommand, int, error) {
	base := "FROM setpoint_commands WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.PointName != "" {
		conditions = append(conditions, fmt.Sprintf("point_name = $%d", len(args)+1))
		args = append(args, filter.PointName)
	}
	if filter.Dispatched != nil {
		conditions = append(conditions, fmt.Sprintf("dispatched = $%d", len(args)+1))
		args = append(args, *filter.Dispatched)
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
		return nil, 0, fmt.Errorf("count setpoint commands: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, point_name, effective_time, value, dispatched, created_at, updated_at %s
ORDER BY effective_time LIMIT %d OFFSET %d`, base, size, offset)

	var commands []models.SetpointCommand
	if err := r.db.SelectContext(ctx, &commands, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list setpoint commands: %w", err)
	}
	return commands, total, nil
}
