package settlement

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeTotals(t *testing.T) {
	inv := Invoice{
		Lines: []LineItem{
			{ID: 1, ProductID: 10, Qty: dec("4"), UnitPrice: dec("150")},
			{ID: 2, ProductID: 11, Qty: dec("2"), UnitPrice: dec("200")},
		},
		Discount: dec("50"),
		Payments: []Payment{
			{Mode: ModeCash, Amount: dec("600")},
		},
	}

	totals := ComputeTotals(inv)
	require.True(t, totals.Total.Equal(dec("1000")), "total %s", totals.Total)
	require.True(t, totals.Payable.Equal(dec("950")), "payable %s", totals.Payable)
	require.True(t, totals.Paid.Equal(dec("600")), "paid %s", totals.Paid)
	require.True(t, totals.Due.Equal(dec("350")), "due %s", totals.Due)
}

func TestComputeTotalsAppliesMarkup(t *testing.T) {
	inv := Invoice{
		Lines: []LineItem{
			{ID: 1, Qty: dec("3"), UnitPrice: dec("100"), MarkupPct: dec("10")},
		},
	}

	totals := ComputeTotals(inv)
	require.True(t, totals.Total.Equal(dec("330")), "total %s", totals.Total)
}

func TestComputeTotalsPayableFlooredAtZero(t *testing.T) {
	inv := Invoice{
		Lines:    []LineItem{{ID: 1, Qty: dec("1"), UnitPrice: dec("100")}},
		Discount: dec("150"),
	}

	totals := ComputeTotals(inv)
	require.True(t, totals.Payable.IsZero(), "payable %s", totals.Payable)
	require.True(t, totals.Due.IsZero(), "due %s", totals.Due)
}

func TestComputeTotalsOverpaymentNotClamped(t *testing.T) {
	inv := Invoice{
		Lines:    []LineItem{{ID: 1, Qty: dec("1"), UnitPrice: dec("500")}},
		Payments: []Payment{{Amount: dec("550")}},
	}

	totals := ComputeTotals(inv)
	require.True(t, totals.Due.Equal(dec("-50")), "due %s", totals.Due)
}

func TestComputeTotalsEmptyInvoice(t *testing.T) {
	totals := ComputeTotals(Invoice{})
	require.True(t, totals.Total.IsZero())
	require.True(t, totals.Payable.IsZero())
	require.True(t, totals.Paid.IsZero())
	require.True(t, totals.Due.IsZero())
}

func TestComputeTotalsIdempotent(t *testing.T) {
	inv := Invoice{
		Lines: []LineItem{
			{ID: 1, Qty: dec("7"), UnitPrice: dec("33.33"), MarkupPct: dec("5")},
		},
		Discount: dec("12.5"),
		Payments: []Payment{{Amount: dec("100")}, {Amount: dec("41.19")}},
	}

	first := ComputeTotals(inv)
	second := ComputeTotals(inv)
	require.True(t, first.Total.Equal(second.Total))
	require.True(t, first.Payable.Equal(second.Payable))
	require.True(t, first.Paid.Equal(second.Paid))
	require.True(t, first.Due.Equal(second.Due))
}

func TestAdjustedPrice(t *testing.T) {
	line := LineItem{UnitPrice: dec("100"), MarkupPct: dec("10")}
	require.True(t, line.AdjustedPrice().Equal(dec("110")))

	plain := LineItem{UnitPrice: dec("75.50")}
	require.True(t, plain.AdjustedPrice().Equal(dec("75.50")))
}

func TestComputeReturnAmount(t *testing.T) {
	line := LineItem{UnitPrice: dec("100"), MarkupPct: dec("10")}
	amount := ComputeReturnAmount(line, dec("2"))
	require.True(t, amount.Equal(dec("220")), "amount %s", amount)
}

func TestReturnedValue(t *testing.T) {
	lines := []LineItem{
		{ID: 1, Qty: dec("10"), UnitPrice: dec("50")},
		{ID: 2, Qty: dec("5"), UnitPrice: dec("100"), MarkupPct: dec("10")},
	}
	returns := []Return{
		{LineItemID: 1, Qty: dec("2")},
		{LineItemID: 2, Qty: dec("1")},
		{LineItemID: 99, Qty: dec("3")},
	}

	value := ReturnedValue(lines, returns)
	require.True(t, value.Equal(dec("210")), "value %s", value)
}

func TestValidateReturn(t *testing.T) {
	line := LineItem{ID: 1, Qty: dec("10"), UnitPrice: dec("25")}
	existing := []Return{
		{LineItemID: 1, Qty: dec("4")},
		{LineItemID: 1, Qty: dec("3")},
		{LineItemID: 2, Qty: dec("100")},
	}

	require.NoError(t, ValidateReturn(line, existing, dec("3")))

	err := ValidateReturn(line, existing, dec("4"))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrExceedsSoldQuantity)

	var exceeds *ExceedsSoldQuantityError
	require.ErrorAs(t, err, &exceeds)
	require.True(t, exceeds.AlreadyReturned.Equal(dec("7")))
	require.True(t, exceeds.Sold.Equal(dec("10")))
	require.True(t, exceeds.Remaining().Equal(dec("3")))
	require.Contains(t, err.Error(), "7")
	require.Contains(t, err.Error(), "10")
}

func TestValidateReturnNonPositive(t *testing.T) {
	line := LineItem{ID: 1, Qty: dec("10")}

	require.ErrorIs(t, ValidateReturn(line, nil, decimal.Zero), ErrNonPositiveQuantity)
	require.ErrorIs(t, ValidateReturn(line, nil, dec("-1")), ErrNonPositiveQuantity)
}

func TestValidateReturnSequenceHoldsInvariant(t *testing.T) {
	line := LineItem{ID: 1, Qty: dec("10"), UnitPrice: dec("5")}
	var recorded []Return

	for _, qty := range []string{"4", "3", "3"} {
		err := ValidateReturn(line, recorded, dec(qty))
		require.NoError(t, err)
		recorded = append(recorded, Return{LineItemID: 1, Qty: dec(qty)})
	}

	// Fully returned; nothing further passes.
	err := ValidateReturn(line, recorded, dec("0.01"))
	require.ErrorIs(t, err, ErrExceedsSoldQuantity)

	sum := decimal.Zero
	for _, ret := range recorded {
		sum = sum.Add(ret.Qty)
	}
	require.False(t, sum.GreaterThan(line.Qty))
}

func TestPaymentModeReferenceRequired(t *testing.T) {
	require.True(t, ModeBank.ReferenceRequired())
	require.True(t, ModeCheque.ReferenceRequired())
	require.False(t, ModeCash.ReferenceRequired())
	require.False(t, ModeMobile.ReferenceRequired())

	require.True(t, ModeCash.Valid())
	require.False(t, PaymentMode("WIRE").Valid())
}

func TestExceedsSoldQuantityErrorMatching(t *testing.T) {
	err := &ExceedsSoldQuantityError{
		Requested:       dec("4"),
		AlreadyReturned: dec("7"),
		Sold:            dec("10"),
	}
	require.True(t, errors.Is(err, ErrExceedsSoldQuantity))
	require.False(t, errors.Is(err, ErrNonPositiveQuantity))
}
