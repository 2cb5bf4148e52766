package discount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/port"
)

var hundred = decimal.NewFromInt(100)

// Service manages the discount code registry.
type Service struct {
	Codes port.DiscountStore
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CodeInput describes the mutable fields of a discount code.
type CodeInput struct {
	Code       string
	Percentage decimal.Decimal
	ExpiresAt  *time.Time
	Active     bool
}

func (in CodeInput) validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("code is required")
	}
	if in.Percentage.IsNegative() || in.Percentage.GreaterThan(hundred) {
		return errors.New("percentage must be between 0 and 100")
	}
	return nil
}

// ListCodes returns every registered discount code.
func (s *Service) ListCodes(ctx context.Context) ([]domain.DiscountCode, error) {
	return s.Codes.ListCodes(ctx)
}

// GetByCode looks up a code by its string value.
func (s *Service) GetByCode(ctx context.Context, code string) (domain.DiscountCode, error) {
	return s.Codes.GetByCode(ctx, strings.TrimSpace(code))
}

// CreateCode registers a new discount code.
func (s *Service) CreateCode(ctx context.Context, in CodeInput) (domain.DiscountCode, error) {
	if err := in.validate(); err != nil {
		return domain.DiscountCode{}, fmt.Errorf("create discount code: %w", err)
	}
	code := domain.DiscountCode{
		ID:         uuid.New(),
		Code:       strings.TrimSpace(in.Code),
		Percentage: in.Percentage,
		ExpiresAt:  in.ExpiresAt,
		Active:     in.Active,
		CreatedAt:  s.now(),
	}
	if err := s.Codes.CreateCode(ctx, code); err != nil {
		return domain.DiscountCode{}, err
	}
	return code, nil
}

// UpdateCode overwrites an existing code's mutable fields.
func (s *Service) UpdateCode(ctx context.Context, id uuid.UUID, in CodeInput) (domain.DiscountCode, error) {
	if err := in.validate(); err != nil {
		return domain.DiscountCode{}, fmt.Errorf("update discount code: %w", err)
	}
	existing, err := s.findByID(ctx, id)
	if err != nil {
		return domain.DiscountCode{}, err
	}
	existing.Code = strings.TrimSpace(in.Code)
	existing.Percentage = in.Percentage
	existing.ExpiresAt = in.ExpiresAt
	existing.Active = in.Active
	if err := s.Codes.UpdateCode(ctx, existing); err != nil {
		return domain.DiscountCode{}, err
	}
	return existing, nil
}

// DeleteCode removes a code from the registry.
func (s *Service) DeleteCode(ctx context.Context, id uuid.UUID) error {
	return s.Codes.DeleteCode(ctx, id)
}

// CheckUsable reports whether the code exists and is usable right now. An
// existing but inactive or expired code yields domain.ErrDiscountUnusable.
func (s *Service) CheckUsable(ctx context.Context, code string) (domain.DiscountCode, error) {
	dc, err := s.GetByCode(ctx, code)
	if err != nil {
		return domain.DiscountCode{}, err
	}
	if !dc.UsableAt(s.now()) {
		return dc, fmt.Errorf("code %s: %w", dc.Code, domain.ErrDiscountUnusable)
	}
	return dc, nil
}

func (s *Service) findByID(ctx context.Context, id uuid.UUID) (domain.DiscountCode, error) {
	codes, err := s.Codes.ListCodes(ctx)
	if err != nil {
		return domain.DiscountCode{}, err
	}
	for _, code := range codes {
		if code.ID == id {
			return code, nil
		}
	}
	return domain.DiscountCode{}, fmt.Errorf("discount code %s: %w", id, domain.ErrDiscountNotFound)
}
