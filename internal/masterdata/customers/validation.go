package customers

import (
	"strings"

	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"
)

func (s *Service) validate(c Customer) error {
	if strings.TrimSpace(c.Code) == "" {
		return internalShared.ValidationError("customer code is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return internalShared.ValidationError("customer name is required")
	}
	return nil
}
