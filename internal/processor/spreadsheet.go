package processor

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	goexcel "github.com/VantageDataChat/GoExcel"
	"github.com/shakinm/xlsReader/xls"
	"go.uber.org/zap"

	"doclens/internal/analysis"
	"doclens/internal/model"
)

// NumericRatioPercent is the share of non-empty values that must parse as
// numbers for a column to be typed numeric. Compared in integers so the 70%
// boundary is exact.
const NumericRatioPercent = 70

const (
	msgEmptyCSV   = "Empty CSV file"
	msgEmptyExcel = "Empty Excel file"
)

var ErrEmptyWorkbook = errors.New("empty workbook")

// sheetReader returns the first worksheet as a row-major grid.
type sheetReader func(data []byte) (sheetName string, grid [][]string, err error)

// ProcessCSV parses CSV text. Cell values stay raw strings.
func ProcessCSV(text string) *model.TabularResult {
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return tabularError(model.TypeCSV, msgEmptyCSV)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return tabularError(model.TypeCSV, fmt.Sprintf("CSV parse error: %v", err))
	}
	if len(records) == 0 {
		return tabularError(model.TypeCSV, msgEmptyCSV)
	}
	return buildTabular(model.TypeCSV, records)
}

func (p *Processor) processWorkbook(data []byte, read sheetReader) *model.TabularResult {
	name, grid, err := read(data)
	if errors.Is(err, ErrEmptyWorkbook) || (err == nil && len(trimGrid(grid)) == 0) {
		return tabularError(model.TypeExcel, msgEmptyExcel)
	}
	if err != nil {
		p.log.Warn("[Excel] workbook read failed", zap.Error(err))
		return tabularError(model.TypeExcel, err.Error())
	}
	res := buildTabular(model.TypeExcel, trimGrid(grid))
	res.SheetName = name
	return res
}

// trimGrid drops trailing rows with no content.
func trimGrid(grid [][]string) [][]string {
	end := len(grid)
	for end > 0 && rowEmpty(grid[end-1]) {
		end--
	}
	return grid[:end]
}

func rowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// buildTabular treats grid[0] as the header row.
func buildTabular(kind model.ResultType, grid [][]string) *model.TabularResult {
	columns := headerNames(grid[0])
	rows := make([]model.Row, 0, len(grid)-1)
	for _, rec := range grid[1:] {
		if rowEmpty(rec) {
			continue
		}
		row := make(model.Row, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return &model.TabularResult{
		Kind:     kind,
		RowCount: len(rows),
		Columns:  columns,
		Data:     rows,
		Summary:  Summarize(columns, rows),
	}
}

// headerNames names blank header cells "Column N" and suffixes duplicates so
// column names stay unique.
func headerNames(header []string) []string {
	used := make(map[string]bool, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		name := h
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// Summarize computes per-column statistics over non-empty values.
func Summarize(columns []string, rows []model.Row) map[string]model.ColumnSummary {
	out := make(map[string]model.ColumnSummary, len(columns))
	for _, col := range columns {
		var s model.ColumnSummary
		var sum, lo, hi float64
		for _, row := range rows {
			v := strings.TrimSpace(row[col])
			if v == "" {
				continue
			}
			s.Total++
			f, ok := parseNumber(v)
			if !ok {
				continue
			}
			if s.Numeric == 0 || f < lo {
				lo = f
			}
			if s.Numeric == 0 || f > hi {
				hi = f
			}
			sum += f
			s.Numeric++
		}
		s.DataType = model.DataTypeText
		if s.Total > 0 && s.Numeric*100 >= s.Total*NumericRatioPercent {
			s.DataType = model.DataTypeNumeric
		}
		if s.Numeric > 0 {
			avg := analysis.Round2(sum / float64(s.Numeric))
			s.Min, s.Max, s.Avg = &lo, &hi, &avg
		}
		out[col] = s
	}
	return out
}

func parseNumber(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func tabularError(kind model.ResultType, msg string) *model.TabularResult {
	return &model.TabularResult{
		Kind:    kind,
		Columns: []string{},
		Data:    []model.Row{},
		Summary: map[string]model.ColumnSummary{},
		Error:   msg,
	}
}

// readXLSXSheet reads the first worksheet of an OOXML workbook.
func readXLSXSheet(data []byte) (name string, grid [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("excel parse error: %v", r)
		}
	}()

	wb, err := goexcel.NewXLSXReader().Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("excel parse error: %w", err)
	}
	names := wb.GetSheetNames()
	if len(names) == 0 {
		return "", nil, ErrEmptyWorkbook
	}
	name = names[0]
	sheet, err := wb.GetSheetByName(name)
	if err != nil {
		return name, nil, fmt.Errorf("excel parse error: %w", err)
	}
	rows, err := sheet.RowIterator()
	if err != nil {
		return name, nil, fmt.Errorf("excel parse error: %w", err)
	}

	grid = make([][]string, 0, len(rows))
	for _, row := range rows {
		var line []string
		for _, cell := range row {
			if cell == nil || cell.IsEmpty() {
				continue
			}
			col := int(cell.Col())
			for len(line) <= col {
				line = append(line, "")
			}
			line[col] = cell.GetFormattedValue()
		}
		grid = append(grid, line)
	}
	return name, grid, nil
}

// readXLSSheet reads the first worksheet of a legacy BIFF workbook.
func readXLSSheet(data []byte) (name string, grid [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xls parse error: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("xls parse error: %w", err)
	}
	if wb.GetNumberSheets() == 0 {
		return "", nil, ErrEmptyWorkbook
	}
	sheet, err := wb.GetSheet(0)
	if err != nil {
		return "", nil, fmt.Errorf("xls parse error: %w", err)
	}
	name = sheet.GetName()

	n := sheet.GetNumberRows()
	grid = make([][]string, 0, n)
	for i := 0; i < n; i++ {
		row, err := sheet.GetRow(i)
		if err != nil || row == nil {
			grid = append(grid, nil)
			continue
		}
		cols := row.GetCols()
		line := make([]string, len(cols))
		for j, cell := range cols {
			line[j] = strings.TrimSpace(cell.GetString())
		}
		grid = append(grid, line)
	}
	return name, grid, nil
}
