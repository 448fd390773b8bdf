// Package tables writes the campaign and scenario tables as CSV and,
// optionally, as XLSX workbooks.
package tables

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"

	"github.com/yaron8/lossreport-infra/records"
)

const (
	QueryOverviewName = "query_overview"
	overviewSuffix    = "_campaign_overview"

	sheetName  = "Sheet1"
	tableStyle = `{"table_name":"Table1","table_style":"TableStyleMedium2","show_row_stripes":true}`
)

// Columns hidden in the campaign overview workbook: Client, Server, Port.
var hiddenOverviewColumns = []string{"D", "E", "F"}

// Options selects the extra output formats.
type Options struct {
	Excel bool
}

// WriteCampaignOverview writes <campaign>_campaign_overview.csv (and .xlsx) into dir
// and returns the CSV path.
func WriteCampaignOverview(opts Options, dir, campaignName string, rows []records.OverviewRow) (string, error) {
	path := filepath.Join(dir, campaignName+overviewSuffix+".csv")
	if err := writeCSV(path, &rows); err != nil {
		return "", err
	}
	if opts.Excel {
		if err := SaveAsExcel(path, hiddenOverviewColumns); err != nil {
			return "", err
		}
	}
	return path, nil
}

// WriteQueryOverview writes query_overview.csv (and .xlsx) for a repaired
// sample sequence into dir and returns the CSV path.
func WriteQueryOverview(opts Options, dir string, repaired []records.SampleReport) (string, error) {
	path := filepath.Join(dir, QueryOverviewName+".csv")
	rows := records.NewQueryRows(repaired)
	if err := writeCSV(path, &rows); err != nil {
		return "", err
	}
	if opts.Excel {
		if err := SaveAsExcel(path, nil); err != nil {
			return "", err
		}
	}
	return path, nil
}

func writeCSV(path string, rows interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// SaveAsExcel converts the CSV file at csvPath into a workbook next to it.
// Numeric cells are stored as numbers, the data range becomes a table and the
// given columns are hidden.
func SaveAsExcel(csvPath string, hidden []string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	grid, err := csv.NewReader(f).ReadAll()
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", csvPath, err)
	}
	if len(grid) == 0 {
		return fmt.Errorf("%s: no header", csvPath)
	}

	xlsx := excelize.NewFile()
	for r, row := range grid {
		for c, cell := range row {
			axis := CellName(c, r+1)
			if r > 0 {
				if n, err := strconv.ParseFloat(cell, 64); err == nil {
					xlsx.SetCellValue(sheetName, axis, n)
					continue
				}
			}
			xlsx.SetCellValue(sheetName, axis, cell)
		}
	}

	last := CellName(len(grid[0])-1, len(grid))
	if len(grid) > 1 {
		if err := xlsx.AddTable(sheetName, "A1", last, tableStyle); err != nil {
			return fmt.Errorf("failed to add table: %w", err)
		}
	}
	for _, col := range hidden {
		xlsx.SetColVisible(sheetName, col, false)
	}

	xlsxPath := strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".xlsx"
	if err := xlsx.SaveAs(xlsxPath); err != nil {
		return fmt.Errorf("failed to save %s: %w", xlsxPath, err)
	}
	return nil
}

// CellName returns the A1-style name of a zero-based column and one-based row.
func CellName(col, row int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name + strconv.Itoa(row)
}
