package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-dcv-api/internal/models"
)

// TermRepository resolves academic terms from the source calendar.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository instantiates a term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// ActiveTerm returns the term whose date range contains the given instant.
// When ranges overlap the term that started last wins.
func (r *TermRepository) ActiveTerm(ctx context.Context, at time.Time) (*models.Term, error) {
	const query = `SELECT code, name, start_date, end_date
FROM terms
WHERE start_date <= $1 AND end_date >= $1
ORDER BY start_date DESC LIMIT 1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, at); err != nil {
		return nil, err
	}
	return &term, nil
}
