package products

import (
	"context"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"
)

const errInvalidID = internalShared.ValidationError("invalid product ID")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters.Normalize())
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, errInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, id int64, product Product) error {
	if id <= 0 {
		return errInvalidID
	}
	if err := s.validate(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, product)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Code) == "" {
		return internalShared.ValidationError("product code is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return internalShared.ValidationError("product name is required")
	}
	if p.UnitPrice.IsNegative() {
		return internalShared.ValidationError("unit price cannot be negative")
	}
	if p.MarkupPct.IsNegative() {
		return internalShared.ValidationError("markup percentage cannot be negative")
	}
	return nil
}
