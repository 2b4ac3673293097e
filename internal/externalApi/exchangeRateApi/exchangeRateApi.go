package exchangeRateApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/KotFed0t/fondos_backoffice/internal/externalApi"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type quotation struct {
	Buy       decimal.Decimal `json:"compra"`
	Sell      decimal.Decimal `json:"venta"`
	House     string          `json:"casa"`
	UpdatedAt time.Time       `json:"fechaActualizacion"`
}

type ExchangeRateApi struct {
	client *resty.Client
	path   string
	source string
}

func New(cfg *config.Config) *ExchangeRateApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.ExchangeRateApi.Url)
	return &ExchangeRateApi{
		client: client,
		path:   cfg.API.ExchangeRateApi.Path,
		source: cfg.API.ExchangeRateApi.Source,
	}
}

func (a *ExchangeRateApi) Source() string {
	return a.source
}

// GetExchangeRate fetches the current ARS per USD quotation.
func (a *ExchangeRateApi) GetExchangeRate(ctx context.Context) (model.ExchangeRate, error) {
	rqId := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start ExchangeRateApi.GetExchangeRate request", slog.String("rqID", rqId), slog.String("path", a.path))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(a.path)

	if err != nil {
		slog.Error("error while dialing ExchangeRateApi", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return model.ExchangeRate{}, err
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return model.ExchangeRate{}, externalApi.ErrNotFound
	case resp.IsError():
		slog.Error("ExchangeRateApi responded with error", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqId))
		return model.ExchangeRate{}, fmt.Errorf("%w: %d", externalApi.ErrUnexpectedStatus, resp.StatusCode())
	}

	q := quotation{}
	err = json.Unmarshal(resp.Body(), &q)
	if err != nil {
		slog.Error("can't unmarshall response into quotation", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return model.ExchangeRate{}, err
	}

	if !q.Buy.IsPositive() || !q.Sell.IsPositive() {
		return model.ExchangeRate{}, fmt.Errorf("%w: compra=%s venta=%s", externalApi.ErrInvalidQuotation, q.Buy, q.Sell)
	}

	updatedAt := q.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	slog.Debug("ExchangeRateApi.GetExchangeRate request complete", slog.String("rqID", rqId))

	return model.ExchangeRate{
		Date:      time.Date(updatedAt.Year(), updatedAt.Month(), updatedAt.Day(), 0, 0, 0, 0, time.UTC),
		Source:    a.source,
		Buy:       q.Buy,
		Sell:      q.Sell,
		UpdatedAt: updatedAt,
	}, nil
}
