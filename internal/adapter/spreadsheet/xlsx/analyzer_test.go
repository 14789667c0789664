package xlsx_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"

	"github.com/fairyhunter13/excel-interviewer/internal/adapter/spreadsheet/xlsx"
	"github.com/fairyhunter13/excel-interviewer/internal/domain"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// buildWorkbook produces an xlsx with headers, data, a formula, and a chart.
func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"Region", "Amount", "Notes"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	rows := [][]any{
		{"North", 120, "ok"},
		{"South", 80, "ok"},
		{"East", 95, "check"},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	require.NoError(t, f.SetCellFormula(sheet, "A5", "SUM(B2:B4)"))
	require.NoError(t, f.SetCellValue(sheet, "B5", 295))

	require.NoError(t, f.AddChart(sheet, "E1", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       "Amounts",
			Categories: "Sheet1!$A$2:$A$4",
			Values:     "Sheet1!$B$2:$B$4",
		}},
	}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestAnalyze_Workbook(t *testing.T) {
	t.Parallel()
	an := xlsx.New(testLogger())

	analysis, err := an.Analyze(context.Background(), buildWorkbook(t))
	require.NoError(t, err)

	assert.True(t, analysis.FileReadable)
	assert.Equal(t, 1, analysis.WorksheetCount)
	assert.True(t, analysis.DataPresent)
	assert.Empty(t, analysis.Errors)

	require.NotEmpty(t, analysis.Formulas)
	assert.Equal(t, "A5", analysis.Formulas[0].Cell)
	assert.Equal(t, "=SUM(B2:B4)", analysis.Formulas[0].Formula)
	assert.Contains(t, analysis.FunctionsUsed, "SUM")

	assert.Equal(t, 1, analysis.ChartCount)

	assert.Equal(t, 4, analysis.DataSummary.Rows)
	assert.Equal(t, 3, analysis.DataSummary.Columns)
	assert.Equal(t, []string{"Region", "Amount", "Notes"}, analysis.DataSummary.ColumnNames)
	assert.True(t, analysis.DataSummary.HasHeaders)
	assert.Contains(t, analysis.DataSummary.NumericColumns, "Amount")
	assert.NotContains(t, analysis.DataSummary.NumericColumns, "Region")
}

func TestAnalyze_UnopenableContainer(t *testing.T) {
	t.Parallel()
	an := xlsx.New(testLogger())

	analysis, err := an.Analyze(context.Background(), []byte("this is not a workbook"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.False(t, analysis.FileReadable)
}

func TestAnalyze_EmptySheet(t *testing.T) {
	t.Parallel()
	f := excelize.NewFile()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	an := xlsx.New(testLogger())
	analysis, err := an.Analyze(context.Background(), buf.Bytes())
	require.NoError(t, err)

	assert.True(t, analysis.FileReadable)
	assert.Equal(t, 1, analysis.WorksheetCount)
	assert.False(t, analysis.DataPresent)
	assert.Empty(t, analysis.Formulas)
	assert.Zero(t, analysis.ChartCount)
}
