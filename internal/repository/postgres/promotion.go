package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// uniqueViolation is the PostgreSQL error code for a unique-constraint
// violation.
const uniqueViolation = "23505"

// PromotionRepository is a PostgreSQL implementation of
// repository.PromotionRepository.
type PromotionRepository struct {
	q Querier
}

// NewPromotionRepository creates a new PostgreSQL promotion repository.
func NewPromotionRepository(db *sql.DB) *PromotionRepository {
	return &PromotionRepository{q: db}
}

// NewPromotionRepositoryWithTx creates a promotion repository using a
// transaction.
func NewPromotionRepositoryWithTx(tx *sql.Tx) *PromotionRepository {
	return &PromotionRepository{q: tx}
}

// GetByCode retrieves a promotion by code, case-insensitively.
func (r *PromotionRepository) GetByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	query := `
		SELECT id, code, discount_type, discount_value, expires_at, active
		FROM promotions WHERE lower(code) = lower($1)
	`

	var promo domain.Promotion
	err := r.q.QueryRowContext(ctx, query, code).Scan(
		&promo.ID,
		&promo.Code,
		&promo.Type,
		&promo.Value,
		&promo.ExpiresAt,
		&promo.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &promo, nil
}

// HasUsage reports whether the user has already redeemed the promotion.
func (r *PromotionRepository) HasUsage(ctx context.Context, promotionID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM promotion_usage WHERE promotion_id = $1 AND user_id = $2)`

	var used bool
	err := r.q.QueryRowContext(ctx, query, promotionID, userID).Scan(&used)
	return used, err
}

// InsertUsage records a redemption. The table's unique constraint on
// (promotion_id, user_id) is the single-use enforcement; a violation
// surfaces as repository.ErrDuplicate.
func (r *PromotionRepository) InsertUsage(ctx context.Context, usage *domain.PromotionUsage) error {
	query := `
		INSERT INTO promotion_usage (promotion_id, user_id, ride_id, used_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.q.ExecContext(ctx, query, usage.PromotionID, usage.UserID, usage.RideID, usage.UsedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}
