package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type LiquidityMovement struct {
	LiquidityMovementID int64           `db:"liquidity_movement_id"`
	ClientID            int64           `db:"client_id"`
	FundID              sql.NullInt64   `db:"fund_id"`
	Kind                string          `db:"kind"`
	Origin              string          `db:"origin"`
	Amount              decimal.Decimal `db:"amount"`
	Currency            string          `db:"currency"`
	MovementDate        time.Time       `db:"movement_date"`
}
