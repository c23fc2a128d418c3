package suppliers

import (
	"strings"

	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"
)

func (s *Service) validate(sup Supplier) error {
	if strings.TrimSpace(sup.Code) == "" {
		return internalShared.ValidationError("supplier code is required")
	}
	if strings.TrimSpace(sup.Name) == "" {
		return internalShared.ValidationError("supplier name is required")
	}
	return nil
}
