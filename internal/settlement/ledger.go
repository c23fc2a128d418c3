// Package settlement computes the derived financial fields of purchase and
// sale invoices: totals, payable after discount, paid to date, outstanding
// due, and returned value. All functions are pure reductions over the
// invoice's append-only collections.
package settlement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNonPositiveQuantity rejects zero or negative return quantities.
var ErrNonPositiveQuantity = errors.New("settlement: return quantity must be positive")

// ErrExceedsSoldQuantity is the sentinel matched by errors.Is for over-return
// rejections. The concrete error is an *ExceedsSoldQuantityError carrying the
// quantities needed for a precise user-facing message.
var ErrExceedsSoldQuantity = errors.New("settlement: return exceeds sold quantity")

// ExceedsSoldQuantityError reports an attempted over-return.
type ExceedsSoldQuantityError struct {
	Requested       decimal.Decimal
	AlreadyReturned decimal.Decimal
	Sold            decimal.Decimal
}

func (e *ExceedsSoldQuantityError) Error() string {
	return fmt.Sprintf("settlement: cannot return %s: %s of %s already returned",
		e.Requested, e.AlreadyReturned, e.Sold)
}

// Remaining is the quantity still eligible for return.
func (e *ExceedsSoldQuantityError) Remaining() decimal.Decimal {
	return e.Sold.Sub(e.AlreadyReturned)
}

func (e *ExceedsSoldQuantityError) Is(target error) bool {
	return target == ErrExceedsSoldQuantity
}

// ComputeTotals derives the invoice's financial summary. Payable is floored
// at zero when the discount exceeds the total; Due is deliberately not
// clamped so an overpaid invoice shows a negative balance. Returns do not
// reduce Due.
func ComputeTotals(inv Invoice) Totals {
	total := decimal.Zero
	for _, line := range inv.Lines {
		total = total.Add(line.Total())
	}

	payable := total.Sub(inv.Discount)
	if payable.IsNegative() {
		payable = decimal.Zero
	}

	paid := decimal.Zero
	for _, p := range inv.Payments {
		paid = paid.Add(p.Amount)
	}

	return Totals{
		Total:   total.Round(2),
		Payable: payable.Round(2),
		Paid:    paid.Round(2),
		Due:     payable.Sub(paid).Round(2),
	}
}

// ReturnedValue sums each return's quantity priced at its line's adjusted
// price. Returns against unknown line items contribute nothing.
func ReturnedValue(lines []LineItem, returns []Return) decimal.Decimal {
	byID := make(map[int64]LineItem, len(lines))
	for _, line := range lines {
		byID[line.ID] = line
	}
	value := decimal.Zero
	for _, ret := range returns {
		line, ok := byID[ret.LineItemID]
		if !ok {
			continue
		}
		value = value.Add(line.AdjustedPrice().Mul(ret.Qty))
	}
	return value.Round(2)
}

// ComputeReturnAmount values a return of qty units against the given line.
func ComputeReturnAmount(line LineItem, qty decimal.Decimal) decimal.Decimal {
	return line.AdjustedPrice().Mul(qty).Round(2)
}

// ValidateReturn checks a proposed return against the line's sold quantity
// and the returns already recorded for that line. The accepted quantity is
// never clamped; callers persist it as requested or not at all. Returns for
// other line items in existing are ignored.
func ValidateReturn(line LineItem, existing []Return, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return ErrNonPositiveQuantity
	}
	already := decimal.Zero
	for _, ret := range existing {
		if ret.LineItemID == line.ID {
			already = already.Add(ret.Qty)
		}
	}
	if already.Add(qty).GreaterThan(line.Qty) {
		return &ExceedsSoldQuantityError{
			Requested:       qty,
			AlreadyReturned: already,
			Sold:            line.Qty,
		}
	}
	return nil
}
