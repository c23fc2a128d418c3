package customers

import (
	"context"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"
)

const errInvalidID = internalShared.ValidationError("invalid customer ID")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	return s.repo.List(ctx, filters.Normalize())
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, errInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, customer Customer) (Customer, error) {
	if err := s.validate(customer); err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, customer)
}

func (s *Service) Update(ctx context.Context, id int64, customer Customer) error {
	if id <= 0 {
		return errInvalidID
	}
	if err := s.validate(customer); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, customer)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errInvalidID
	}
	return s.repo.Delete(ctx, id)
}
