package twr

import (
	"testing"
	"time"

	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestPeriodReturn(t *testing.T) {
	t.Run("deposit is not performance", func(t *testing.T) {
		got := PeriodReturn(dec("10000"), dec("11500"), dec("1000"))
		requireDecimal(t, "0.05", got)
	})

	t.Run("no flows", func(t *testing.T) {
		requireDecimal(t, "0.1", PeriodReturn(dec("200"), dec("220"), decimal.Zero))
	})

	t.Run("zero start", func(t *testing.T) {
		requireDecimal(t, "0", PeriodReturn(decimal.Zero, dec("5000"), dec("5000")))
	})
}

func TestCumulative(t *testing.T) {
	got := Cumulative(dec("0.05"), dec("-0.02"), dec("0.03"))
	requireDecimal(t, "0.05987", got)

	requireDecimal(t, "0", Cumulative())
	requireDecimal(t, "0.1", Chain(decimal.Zero, dec("0.1")))
}

func TestCollectFlows(t *testing.T) {
	movements := []model.LiquidityMovement{
		{Kind: model.FlowDeposit, Origin: model.OriginManual, Amount: dec("1000")},
		{Kind: model.FlowWithdrawal, Origin: model.OriginManual, Amount: dec("300")},
		{Kind: model.FlowTransfer, Origin: model.OriginManual, Amount: dec("5000")},
		{Kind: model.FlowDeposit, Origin: model.OriginAutomatic, Amount: dec("700")},
	}

	flows := CollectFlows(movements)
	requireDecimal(t, "1000", flows.Deposits)
	requireDecimal(t, "300", flows.Withdrawals)
	requireDecimal(t, "700", flows.Net())
}

func TestBuildSnapshot(t *testing.T) {
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("first snapshot has no history", func(t *testing.T) {
		s := BuildSnapshot(nil, Period{FundID: 3, End: end, SecuritiesValue: dec("9000"), CashAssigned: dec("1000")})

		require.True(t, s.NoHistory)
		require.Equal(t, int64(3), s.FundID)
		require.Equal(t, end, s.Date)
		requireDecimal(t, "0", s.PeriodReturn)
		requireDecimal(t, "0", s.CumulativeReturn)
		requireDecimal(t, "10000", s.TotalValue())
	})

	t.Run("chains onto previous", func(t *testing.T) {
		prev := &model.FundSnapshot{
			SecuritiesValue:  dec("9000"),
			CashAssigned:     dec("1000"),
			CumulativeReturn: dec("0.05"),
		}
		s := BuildSnapshot(prev, Period{
			FundID:          3,
			End:             end,
			SecuritiesValue: dec("10500"),
			CashAssigned:    dec("1000"),
			Movements: []model.LiquidityMovement{
				{Kind: model.FlowDeposit, Origin: model.OriginManual, Amount: dec("1000")},
			},
		})

		require.False(t, s.NoHistory)
		requireDecimal(t, "1000", s.PeriodDeposits)
		requireDecimal(t, "0", s.PeriodWithdrawals)
		requireDecimal(t, "0.05", s.PeriodReturn)
		requireDecimal(t, "0.1025", s.CumulativeReturn)
	})

	t.Run("previous with zero value", func(t *testing.T) {
		prev := &model.FundSnapshot{SecuritiesValue: decimal.Zero, CashAssigned: decimal.Zero, CumulativeReturn: decimal.Zero}
		s := BuildSnapshot(prev, Period{End: end, SecuritiesValue: dec("500"), CashAssigned: decimal.Zero})

		require.False(t, s.NoHistory)
		requireDecimal(t, "0", s.PeriodReturn)
	})
}
