package service

import (
	"context"
	"strings"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// PromotionService validates promotion codes against the usage ledger.
//
// Validate is advisory: the binding single-use enforcement is the
// uniqueness constraint written together with ride creation, so a code
// cannot be consumed twice even when two requests race past Validate.
type PromotionService struct {
	promoRepo repository.PromotionRepository
	now       func() time.Time
}

// NewPromotionService creates a new PromotionService.
func NewPromotionService(promoRepo repository.PromotionRepository) *PromotionService {
	return &PromotionService{
		promoRepo: promoRepo,
		now:       time.Now,
	}
}

// Validate checks a code for the given rider. It rejects unknown,
// inactive, expired and already-redeemed codes.
func (s *PromotionService) Validate(ctx context.Context, code, userID string) (*domain.Promotion, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidPromotionCode
	}
	if userID == "" {
		return nil, ErrInvalidPassengerID
	}

	promo, err := s.promoRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !promo.Active {
		return nil, ErrPromotionInactive
	}
	if !promo.ExpiresAt.After(s.now()) {
		return nil, ErrPromotionExpired
	}

	used, err := s.promoRepo.HasUsage(ctx, promo.ID, userID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrPromotionAlreadyUsed
	}

	return promo, nil
}
