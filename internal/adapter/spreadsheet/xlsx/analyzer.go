// Package xlsx implements the spreadsheet analyzer port using excelize.
package xlsx

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	excelize "github.com/xuri/excelize/v2"

	"github.com/fairyhunter13/excel-interviewer/internal/domain"
)

// functionPattern extracts function names like SUM( or VLOOKUP( from formulas.
var functionPattern = regexp.MustCompile(`([A-Z]+)\(`)

// scanRowLimit bounds the per-sheet formula scan for pathological files.
const scanRowLimit = 5000

// Analyzer turns workbook bytes into a structural analysis record.
type Analyzer struct {
	log *slog.Logger
}

// New constructs an Analyzer.
func New(log *slog.Logger) *Analyzer { return &Analyzer{log: log} }

// Analyze inspects the workbook. A non-nil error means the container could
// not be opened at all; every lesser failure is recorded in the analysis
// Errors list instead of being propagated.
func (a *Analyzer) Analyze(_ context.Context, data []byte) (domain.SpreadsheetAnalysis, error) {
	analysis := domain.SpreadsheetAnalysis{
		Formulas:      []domain.FormulaCell{},
		FunctionsUsed: []string{},
		Errors:        []string{},
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return analysis, fmt.Errorf("%w: open workbook: %v", domain.ErrInvalidArgument, err)
	}
	defer func() { _ = f.Close() }()

	analysis.FileReadable = true
	sheets := f.GetSheetList()
	analysis.WorksheetCount = len(sheets)
	if len(sheets) == 0 {
		analysis.Errors = append(analysis.Errors, "workbook contains no worksheets")
		return analysis, nil
	}
	active := sheets[0]

	rows, err := f.GetRows(active)
	if err != nil {
		analysis.Errors = append(analysis.Errors, fmt.Sprintf("data reading error: %v", err))
	}

	a.collectFormulas(f, active, rows, &analysis)
	analysis.ChartCount = countCharts(data)
	a.summarizeData(rows, &analysis)

	a.log.Debug("workbook analyzed",
		slog.Int("worksheets", analysis.WorksheetCount),
		slog.Int("formulas", len(analysis.Formulas)),
		slog.Int("charts", analysis.ChartCount),
		slog.Bool("data_present", analysis.DataPresent))
	return analysis, nil
}

// collectFormulas walks the active sheet cell by cell, recording formulas
// and the set of function names they reference.
func (a *Analyzer) collectFormulas(f *excelize.File, sheet string, rows [][]string, analysis *domain.SpreadsheetAnalysis) {
	functions := make(map[string]struct{})
	for r, row := range rows {
		if r >= scanRowLimit {
			analysis.Errors = append(analysis.Errors, fmt.Sprintf("formula scan truncated after %d rows", scanRowLimit))
			break
		}
		for c := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			formula, err := f.GetCellFormula(sheet, cell)
			if err != nil || formula == "" {
				continue
			}
			if !strings.HasPrefix(formula, "=") {
				formula = "=" + formula
			}
			analysis.Formulas = append(analysis.Formulas, domain.FormulaCell{Cell: cell, Formula: formula})
			for _, m := range functionPattern.FindAllStringSubmatch(strings.ToUpper(formula), -1) {
				functions[m[1]] = struct{}{}
			}
		}
	}
	for fn := range functions {
		analysis.FunctionsUsed = append(analysis.FunctionsUsed, fn)
	}
	sort.Strings(analysis.FunctionsUsed)
}

// summarizeData derives the tabular shape from the active sheet: the first
// row is treated as the header, the remainder as data rows.
func (a *Analyzer) summarizeData(rows [][]string, analysis *domain.SpreadsheetAnalysis) {
	if len(rows) < 2 {
		return
	}
	header := rows[0]
	dataRows := rows[1:]

	analysis.DataPresent = true
	summary := domain.DataSummary{
		Rows:    len(dataRows),
		Columns: len(header),
	}

	names := header
	if len(names) > 10 {
		names = names[:10]
	}
	summary.ColumnNames = append([]string(nil), names...)

	for _, h := range header {
		if h == "" {
			continue
		}
		if _, err := strconv.ParseFloat(h, 64); err != nil {
			summary.HasHeaders = true
			break
		}
	}

	for col, name := range header {
		if name == "" {
			continue
		}
		numeric := false
		for _, row := range dataRows {
			if col >= len(row) || row[col] == "" {
				continue
			}
			if _, err := strconv.ParseFloat(row[col], 64); err != nil {
				numeric = false
				break
			}
			numeric = true
		}
		if numeric {
			summary.NumericColumns = append(summary.NumericColumns, name)
		}
	}

	analysis.DataSummary = summary
}

// countCharts counts chart parts in the workbook package. Excelize offers no
// chart enumeration API, so the xlsx container is inspected directly.
func countCharts(data []byte) int {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	count := 0
	for _, file := range zr.File {
		name := file.Name
		if strings.HasPrefix(name, "xl/charts/chart") && strings.HasSuffix(name, ".xml") && !strings.Contains(name, "colors") && !strings.Contains(name, "style") {
			count++
		}
	}
	return count
}
