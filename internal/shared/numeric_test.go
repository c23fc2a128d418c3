package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	require.True(t, ParseAmount("150.75").Equal(decimal.RequireFromString("150.75")))
	require.True(t, ParseAmount(" 10 ").Equal(decimal.NewFromInt(10)))
	require.True(t, ParseAmount("-3.5").Equal(decimal.RequireFromString("-3.5")))
}

func TestParseAmountLenient(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "12,50", "NaN"} {
		require.True(t, ParseAmount(raw).IsZero(), "raw=%q", raw)
	}
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "1,234.50", FormatMoney(decimal.RequireFromString("1234.5")))
	require.Equal(t, "0.00", FormatMoney(decimal.Zero))
	require.Equal(t, "-50.00", FormatMoney(decimal.NewFromInt(-50)))
}
