package employees

import (
	"context"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"
)

const errInvalidID = internalShared.ValidationError("invalid employee ID")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Employee, int, error) {
	return s.repo.List(ctx, filters.Normalize())
}

func (s *Service) Get(ctx context.Context, id int64) (Employee, error) {
	if id <= 0 {
		return Employee{}, errInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, employee Employee) (Employee, error) {
	if err := s.validate(employee); err != nil {
		return Employee{}, err
	}
	return s.repo.Create(ctx, employee)
}

func (s *Service) Update(ctx context.Context, id int64, employee Employee) error {
	if id <= 0 {
		return errInvalidID
	}
	if err := s.validate(employee); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, employee)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(e Employee) error {
	if strings.TrimSpace(e.Code) == "" {
		return internalShared.ValidationError("employee code is required")
	}
	if strings.TrimSpace(e.Name) == "" {
		return internalShared.ValidationError("employee name is required")
	}
	if e.MonthlySalary.IsNegative() {
		return internalShared.ValidationError("monthly salary cannot be negative")
	}
	return nil
}
