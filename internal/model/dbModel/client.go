package dbModel

import "time"

type Client struct {
	ClientID int64     `db:"client_id"`
	Name     string    `db:"name"`
	Email    string    `db:"email"`
	DtCreate time.Time `db:"dt_create"`
}

type Fund struct {
	FundID   int64     `db:"fund_id"`
	ClientID int64     `db:"client_id"`
	Name     string    `db:"name"`
	Strategy string    `db:"strategy"`
	DtCreate time.Time `db:"dt_create"`
}
