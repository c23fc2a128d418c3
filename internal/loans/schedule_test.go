package loans

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestComputeSchedule(t *testing.T) {
	sched := ComputeSchedule(dec("100000"), dec("12"), 12)

	require.True(t, sched.Interest.Equal(dec("12000")), "interest %s", sched.Interest)
	require.True(t, sched.TotalPayable.Equal(dec("112000")), "total %s", sched.TotalPayable)
	require.True(t, sched.InstallmentPerMonth.Equal(dec("9333.33")), "installment %s", sched.InstallmentPerMonth)
}

func TestComputeScheduleZeroMonths(t *testing.T) {
	sched := ComputeSchedule(dec("5000"), dec("10"), 0)

	require.True(t, sched.Interest.IsZero())
	require.True(t, sched.TotalPayable.Equal(dec("5000")))
	require.True(t, sched.InstallmentPerMonth.IsZero())
}

func TestComputeScheduleZeroRate(t *testing.T) {
	sched := ComputeSchedule(dec("6000"), decimal.Zero, 6)

	require.True(t, sched.Interest.IsZero())
	require.True(t, sched.TotalPayable.Equal(dec("6000")))
	require.True(t, sched.InstallmentPerMonth.Equal(dec("1000")))
}

// Installments times the term must reconstruct the total within a cent per
// month of rounding drift.
func TestInstallmentsCoverTotalPayable(t *testing.T) {
	cases := []struct {
		principal string
		rate      string
		months    int
	}{
		{"100000", "12", 12},
		{"2500.50", "7.25", 18},
		{"99999.99", "15", 36},
		{"1", "1", 1},
		{"75000", "9.5", 24},
	}

	for _, tc := range cases {
		sched := ComputeSchedule(dec(tc.principal), dec(tc.rate), tc.months)
		reconstructed := sched.InstallmentPerMonth.Mul(decimal.NewFromInt(int64(tc.months)))
		drift := reconstructed.Sub(sched.TotalPayable).Abs()
		tolerance := dec("0.01").Mul(decimal.NewFromInt(int64(tc.months)))
		require.True(t, drift.LessThanOrEqual(tolerance),
			"principal=%s rate=%s months=%d drift=%s", tc.principal, tc.rate, tc.months, drift)
	}
}
