package performanceService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KotFed0t/fondos_backoffice/data/repository"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/service"
	"github.com/KotFed0t/fondos_backoffice/internal/twr"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetFund(ctx context.Context, fundID int64) (model.Fund, error)
	GetFunds(ctx context.Context) ([]model.Fund, error)
	GetClientFunds(ctx context.Context, clientID int64) ([]model.Fund, error)
	GetLatestSnapshotOnOrBefore(ctx context.Context, fundID int64, date time.Time) (model.FundSnapshot, error)
	SnapshotExists(ctx context.Context, fundID int64, date time.Time) (bool, error)
	InsertSnapshot(ctx context.Context, snapshot model.FundSnapshot) (int64, error)
	GetSnapshots(ctx context.Context, fundID int64) ([]model.FundSnapshot, error)
	GetFundHoldings(ctx context.Context, fundID int64, asOf time.Time) ([]model.Holding, error)
	GetFundCashAssigned(ctx context.Context, fundID int64, asOf time.Time) (decimal.Decimal, error)
	GetFundLiquidityMovements(ctx context.Context, fundID int64, from, to time.Time) ([]model.LiquidityMovement, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, reports []model.FundReport) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type PerformanceService struct {
	repo      Repository
	generator ReportGenerator
	storage   CloudStorage
	now       func() time.Time
}

// New builds the service. storage may be nil, in which case reports can only
// be downloaded directly.
func New(repo Repository, generator ReportGenerator, storage CloudStorage) *PerformanceService {
	return &PerformanceService{
		repo:      repo,
		generator: generator,
		storage:   storage,
		now:       time.Now,
	}
}

// GenerateSnapshot closes the period (periodStart, periodEnd] of a fund. The
// previous value is the latest snapshot on or before periodStart; without one
// the snapshot is marked as having no history.
func (s *PerformanceService) GenerateSnapshot(ctx context.Context, fundID int64, periodStart, periodEnd time.Time) (snapshot model.FundSnapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PerformanceService.GenerateSnapshot"

	slog.Debug("GenerateSnapshot start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("fundID", fundID), slog.Time("periodStart", periodStart), slog.Time("periodEnd", periodEnd))
	defer func() {
		slog.Debug("GenerateSnapshot finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("fundID", fundID))
	}()

	if !periodEnd.After(periodStart) {
		return model.FundSnapshot{}, service.NewValidationError("periodo", "end must be after start")
	}

	if _, err := s.repo.GetFund(ctx, fundID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.FundSnapshot{}, fmt.Errorf("fund %d: %w", fundID, service.ErrNotFound)
		}
		return model.FundSnapshot{}, err
	}

	exists, err := s.repo.SnapshotExists(ctx, fundID, periodEnd)
	if err != nil {
		return model.FundSnapshot{}, err
	}
	if exists {
		return model.FundSnapshot{}, service.ErrSnapshotExists
	}

	var prev *model.FundSnapshot
	last, err := s.repo.GetLatestSnapshotOnOrBefore(ctx, fundID, periodStart)
	switch {
	case err == nil:
		prev = &last
	case errors.Is(err, repository.ErrNotFound):
		slog.Info("fund has no previous snapshot", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("fundID", fundID))
	default:
		return model.FundSnapshot{}, err
	}

	holdings, err := s.repo.GetFundHoldings(ctx, fundID, periodEnd)
	if err != nil {
		return model.FundSnapshot{}, err
	}

	cash, err := s.repo.GetFundCashAssigned(ctx, fundID, periodEnd)
	if err != nil {
		return model.FundSnapshot{}, err
	}

	movements, err := s.repo.GetFundLiquidityMovements(ctx, fundID, periodStart, periodEnd)
	if err != nil {
		return model.FundSnapshot{}, err
	}

	snapshot = twr.BuildSnapshot(prev, twr.Period{
		FundID:          fundID,
		End:             periodEnd,
		SecuritiesValue: securitiesValue(holdings),
		CashAssigned:    cash,
		Movements:       movements,
	})

	snapshot.SnapshotID, err = s.repo.InsertSnapshot(ctx, snapshot)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.FundSnapshot{}, service.ErrSnapshotExists
		}
		slog.Error("got error from repo.InsertSnapshot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.FundSnapshot{}, err
	}

	slog.Info("snapshot generated",
		slog.String("rqID", rqID),
		slog.Int64("fundID", fundID),
		slog.String("periodReturn", snapshot.PeriodReturn.String()),
		slog.String("cumulativeReturn", snapshot.CumulativeReturn.String()),
		slog.Bool("noHistory", snapshot.NoHistory),
	)

	return snapshot, nil
}

// GenerateAll snapshots every fund for the same period. Funds that already
// have a snapshot for periodEnd are skipped.
func (s *PerformanceService) GenerateAll(ctx context.Context, periodStart, periodEnd time.Time) (created int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PerformanceService.GenerateAll"

	funds, err := s.repo.GetFunds(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	for _, fund := range funds {
		_, err := s.GenerateSnapshot(ctx, fund.FundID, periodStart, periodEnd)
		if errors.Is(err, service.ErrSnapshotExists) {
			continue
		}
		if err != nil {
			slog.Error("failed to generate snapshot", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("fundID", fund.FundID), slog.String("err", err.Error()))
			errs = append(errs, fmt.Errorf("fund %d: %w", fund.FundID, err))
			continue
		}
		created++
	}

	return created, errors.Join(errs...)
}

// GenerateMonthly snapshots every fund for the previous calendar month.
func (s *PerformanceService) GenerateMonthly(ctx context.Context) error {
	start, end := PreviousMonth(s.now())
	created, err := s.GenerateAll(ctx, start, end)
	slog.Info("monthly snapshots done", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.Int("created", created))
	return err
}

// PreviousMonth returns the first day of the month before now's month and the
// first day of now's month, both UTC.
func PreviousMonth(now time.Time) (start, end time.Time) {
	now = now.UTC()
	end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start = end.AddDate(0, -1, 0)
	return start, end
}

func (s *PerformanceService) Snapshots(ctx context.Context, fundID int64) ([]model.FundSnapshot, error) {
	if _, err := s.repo.GetFund(ctx, fundID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("fund %d: %w", fundID, service.ErrNotFound)
		}
		return nil, err
	}
	return s.repo.GetSnapshots(ctx, fundID)
}

// Report renders the funds of a client, or of every client when clientID is 0.
func (s *PerformanceService) Report(ctx context.Context, clientID int64) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PerformanceService.Report"

	slog.Debug("Report start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("clientID", clientID))

	var funds []model.Fund
	if clientID > 0 {
		funds, err = s.repo.GetClientFunds(ctx, clientID)
	} else {
		funds, err = s.repo.GetFunds(ctx)
	}
	if err != nil {
		return nil, "", err
	}
	if len(funds) == 0 {
		return nil, "", service.ErrNotFound
	}

	reports := make([]model.FundReport, 0, len(funds))
	for _, fund := range funds {
		holdings, err := s.repo.GetFundHoldings(ctx, fund.FundID, s.now())
		if err != nil {
			return nil, "", err
		}
		snapshots, err := s.repo.GetSnapshots(ctx, fund.FundID)
		if err != nil {
			return nil, "", err
		}
		reports = append(reports, model.FundReport{Fund: fund, Holdings: holdings, Snapshots: snapshots})
	}

	return s.generator.Generate(ctx, reports)
}

// ExportReport uploads the report and returns its download link.
func (s *PerformanceService) ExportReport(ctx context.Context, clientID int64) (string, error) {
	if s.storage == nil {
		return "", service.ErrStorageDisabled
	}

	fileBytes, ext, err := s.Report(ctx, clientID)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s%s", s.now().Format("20060102_150405"), ext)
	if clientID > 0 {
		filename = fmt.Sprintf("cliente_%d_%s", clientID, filename)
	}

	return s.storage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
}

func (s *PerformanceService) DeleteOldReports(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	return s.storage.DeleteOldFiles(ctx)
}

func securitiesValue(holdings []model.Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.ValueUSD())
	}
	return total
}
