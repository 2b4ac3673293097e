package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type FundSnapshot struct {
	SnapshotID        int64           `db:"snapshot_id"`
	FundID            int64           `db:"fund_id"`
	SnapshotDate      time.Time       `db:"snapshot_date"`
	SecuritiesValue   decimal.Decimal `db:"securities_value"`
	CashAssigned      decimal.Decimal `db:"cash_assigned"`
	PeriodDeposits    decimal.Decimal `db:"period_deposits"`
	PeriodWithdrawals decimal.Decimal `db:"period_withdrawals"`
	PeriodReturn      decimal.Decimal `db:"period_return"`
	CumulativeReturn  decimal.Decimal `db:"cumulative_return"`
	NoHistory         bool            `db:"no_history"`
}

type ExchangeRate struct {
	RateDate time.Time       `db:"rate_date"`
	Source   string          `db:"source"`
	Buy      decimal.Decimal `db:"buy"`
	Sell     decimal.Decimal `db:"sell"`
	DtUpdate time.Time       `db:"dt_update"`
}
