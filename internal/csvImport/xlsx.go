package csvImport

import (
	"bytes"
	"errors"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrEmptyWorkbook = errors.New("workbook has no sheets")

// TextFromXLSX flattens the first sheet of a workbook into semicolon
// delimited text so spreadsheets go through the same parser as csv uploads.
func TextFromXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrEmptyWorkbook
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", err
	}

	sb := strings.Builder{}
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(strings.ReplaceAll(cell, ";", " "))
		}
		sb.WriteByte('\n')
	}

	return sb.String(), nil
}
