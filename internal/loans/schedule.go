// Package loans manages employee loans: a simple-interest schedule fixed at
// issue time and an append-only repayment book with a derived outstanding
// balance.
package loans

import "github.com/shopspring/decimal"

// Schedule groups the derived repayment terms of a loan.
type Schedule struct {
	Interest            decimal.Decimal `json:"interest"`
	TotalPayable        decimal.Decimal `json:"total_payable"`
	InstallmentPerMonth decimal.Decimal `json:"installment_per_month"`
}

var twelveHundred = decimal.NewFromInt(1200)

// ComputeSchedule derives the repayment terms using simple interest over the
// term: principal * rate * months / 1200, everything at 2 fraction digits.
// A zero-month term yields a zero installment.
func ComputeSchedule(principal, ratePct decimal.Decimal, months int) Schedule {
	m := decimal.NewFromInt(int64(months))
	interest := principal.Mul(ratePct).Mul(m).Div(twelveHundred).Round(2)
	total := principal.Add(interest).Round(2)

	installment := decimal.Zero
	if months > 0 {
		installment = total.Div(m).Round(2)
	}

	return Schedule{
		Interest:            interest,
		TotalPayable:        total,
		InstallmentPerMonth: installment,
	}
}
