package xslsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const maxSheetNameLen = 31

var ErrEmptyReport = errors.New("empty report")

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

// Generate writes one sheet per fund with its current positions and the
// history of performance snapshots.
func (g *XSLSXGenerator) Generate(ctx context.Context, reports []model.FundReport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	if len(reports) == 0 {
		return nil, "", ErrEmptyReport
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("funds", len(reports)))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	for i, report := range reports {
		err := g.fillSheet(ctx, f, report, i+1)
		if err != nil {
			return nil, "", err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func SheetName(ordinal int, fundName string) string {
	name := fmt.Sprintf("%d. %s", ordinal, fundName)
	for utf8.RuneCountInString(name) > maxSheetNameLen {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

func (g *XSLSXGenerator) fillSheet(ctx context.Context, f *excelize.File, report model.FundReport, ordinal int) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.fillSheet"

	sheetName := SheetName(ordinal, report.Fund.Name)
	_, err := f.NewSheet(sheetName)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	// posiciones
	if err := sectionTitle(f, sheetName, "A1", "E1", "Posiciones", "#cfe2f3"); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "especie")
	_ = f.SetCellStr(sheetName, "B2", "moneda")
	_ = f.SetCellStr(sheetName, "C2", "cantidad")
	_ = f.SetCellStr(sheetName, "D2", "precio USD")
	_ = f.SetCellStr(sheetName, "E2", "valor USD")

	total := decimal.Zero
	for i, h := range report.Holdings {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), h.Ticker)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), string(h.Currency))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), h.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), h.PriceUSD.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), h.ValueUSD().InexactFloat64())
		total = total.Add(h.ValueUSD())
	}

	rowNum := len(report.Holdings) + 3
	_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", rowNum), "total")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), total.InexactFloat64())

	// evolución
	rowNum += 3
	if err := sectionTitle(f, sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("H%d", rowNum), "Evolución", "#d9ead3"); err != nil {
		return err
	}

	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "fecha")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), "títulos USD")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), "liquidez USD")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", rowNum), "total USD")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", rowNum), "depósitos")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("F%d", rowNum), "retiros")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("G%d", rowNum), "rendimiento período")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("H%d", rowNum), "rendimiento acumulado")

	for _, s := range report.Snapshots {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), s.Date.Format("2006-01-02"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), s.SecuritiesValue.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), s.CashAssigned.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), s.TotalValue().InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), s.PeriodDeposits.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), s.PeriodWithdrawals.InexactFloat64())
		if s.NoHistory {
			_ = f.SetCellStr(sheetName, fmt.Sprintf("G%d", rowNum), "sin historial")
		} else {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowNum), s.PeriodReturn.InexactFloat64())
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", rowNum), s.CumulativeReturn.InexactFloat64())
	}

	return nil
}

func sectionTitle(f *excelize.File, sheetName, from, to, title, color string) error {
	err := f.MergeCell(sheetName, from, to)
	if err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, from, title)

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, from, from, styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}
	return nil
}
