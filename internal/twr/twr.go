// Package twr computes time-weighted returns for fund snapshots.
package twr

import (
	"time"

	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Flows are the manual deposits and withdrawals of a period. Transfers and
// automatic movements do not change the external capital of a fund.
type Flows struct {
	Deposits    decimal.Decimal
	Withdrawals decimal.Decimal
}

func (f Flows) Net() decimal.Decimal {
	return f.Deposits.Sub(f.Withdrawals)
}

func CollectFlows(movements []model.LiquidityMovement) Flows {
	flows := Flows{Deposits: decimal.Zero, Withdrawals: decimal.Zero}
	for _, mv := range movements {
		if mv.Origin != model.OriginManual {
			continue
		}
		switch mv.Kind {
		case model.FlowDeposit:
			flows.Deposits = flows.Deposits.Add(mv.Amount)
		case model.FlowWithdrawal:
			flows.Withdrawals = flows.Withdrawals.Add(mv.Amount)
		}
	}
	return flows
}

// PeriodReturn is (end - start - netFlow) / start, or zero when start is zero.
func PeriodReturn(start, end, netFlow decimal.Decimal) decimal.Decimal {
	if start.IsZero() {
		return decimal.Zero
	}
	return end.Sub(start).Sub(netFlow).Div(start)
}

// Chain links a new period return onto a cumulative one.
func Chain(cumulative, period decimal.Decimal) decimal.Decimal {
	return one.Add(cumulative).Mul(one.Add(period)).Sub(one)
}

func Cumulative(periods ...decimal.Decimal) decimal.Decimal {
	acc := decimal.Zero
	for _, p := range periods {
		acc = Chain(acc, p)
	}
	return acc
}

// Period holds what a snapshot needs besides the previous one.
type Period struct {
	FundID          int64
	End             time.Time
	SecuritiesValue decimal.Decimal
	CashAssigned    decimal.Decimal
	Movements       []model.LiquidityMovement
}

// BuildSnapshot computes the snapshot closing the period. A nil previous
// snapshot means the fund has no history and starts from zero.
func BuildSnapshot(prev *model.FundSnapshot, p Period) model.FundSnapshot {
	flows := CollectFlows(p.Movements)
	snapshot := model.FundSnapshot{
		FundID:            p.FundID,
		Date:              p.End,
		SecuritiesValue:   p.SecuritiesValue,
		CashAssigned:      p.CashAssigned,
		PeriodDeposits:    flows.Deposits,
		PeriodWithdrawals: flows.Withdrawals,
		PeriodReturn:      decimal.Zero,
		CumulativeReturn:  decimal.Zero,
	}

	if prev == nil {
		snapshot.NoHistory = true
		return snapshot
	}

	snapshot.PeriodReturn = PeriodReturn(prev.TotalValue(), snapshot.TotalValue(), flows.Net())
	snapshot.CumulativeReturn = Chain(prev.CumulativeReturn, snapshot.PeriodReturn)
	return snapshot
}
