package employees

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee represents a staff member. Loans reference employees by ID.
type Employee struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Designation   string          `json:"designation"`
	Phone         string          `json:"phone"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
	JoinedAt      time.Time       `json:"joined_at"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
