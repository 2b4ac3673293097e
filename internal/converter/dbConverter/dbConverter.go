package dbConverter

import (
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/model/dbModel"
)

func ConvertClient(dbClient dbModel.Client) model.Client {
	return model.Client{
		ClientID: dbClient.ClientID,
		Name:     dbClient.Name,
		Email:    dbClient.Email,
		DtCreate: dbClient.DtCreate,
	}
}

func ConvertFund(dbFund dbModel.Fund) model.Fund {
	return model.Fund{
		FundID:   dbFund.FundID,
		ClientID: dbFund.ClientID,
		Name:     dbFund.Name,
		Strategy: dbFund.Strategy,
		DtCreate: dbFund.DtCreate,
	}
}

func ConvertInstrumentType(dbType dbModel.InstrumentType) model.InstrumentType {
	return model.InstrumentType{
		InstrumentTypeID: dbType.InstrumentTypeID,
		Ticker:           dbType.Ticker,
		Currency:         model.Currency(dbType.Currency),
	}
}

func ConvertHolding(dbHolding dbModel.Holding) model.Holding {
	return model.Holding{
		InstrumentTypeID: dbHolding.InstrumentTypeID,
		Ticker:           dbHolding.Ticker,
		Currency:         model.Currency(dbHolding.Currency),
		Quantity:         dbHolding.Quantity,
		PriceUSD:         dbHolding.PriceUSD,
	}
}

func ConvertLiquidityMovement(dbMovement dbModel.LiquidityMovement) model.LiquidityMovement {
	mv := model.LiquidityMovement{
		LiquidityMovementID: dbMovement.LiquidityMovementID,
		ClientID:            dbMovement.ClientID,
		Kind:                model.FlowKind(dbMovement.Kind),
		Origin:              model.FlowOrigin(dbMovement.Origin),
		Amount:              dbMovement.Amount,
		Currency:            model.Currency(dbMovement.Currency),
		Date:                dbMovement.MovementDate,
	}
	if dbMovement.FundID.Valid {
		fundID := dbMovement.FundID.Int64
		mv.FundID = &fundID
	}
	return mv
}

func ConvertFundSnapshot(dbSnapshot dbModel.FundSnapshot) model.FundSnapshot {
	return model.FundSnapshot{
		SnapshotID:        dbSnapshot.SnapshotID,
		FundID:            dbSnapshot.FundID,
		Date:              dbSnapshot.SnapshotDate,
		SecuritiesValue:   dbSnapshot.SecuritiesValue,
		CashAssigned:      dbSnapshot.CashAssigned,
		PeriodDeposits:    dbSnapshot.PeriodDeposits,
		PeriodWithdrawals: dbSnapshot.PeriodWithdrawals,
		PeriodReturn:      dbSnapshot.PeriodReturn,
		CumulativeReturn:  dbSnapshot.CumulativeReturn,
		NoHistory:         dbSnapshot.NoHistory,
	}
}

func ConvertExchangeRate(dbRate dbModel.ExchangeRate) model.ExchangeRate {
	return model.ExchangeRate{
		Date:      dbRate.RateDate,
		Source:    dbRate.Source,
		Buy:       dbRate.Buy,
		Sell:      dbRate.Sell,
		UpdatedAt: dbRate.DtUpdate,
	}
}
