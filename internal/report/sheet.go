package report

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/annotation"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/summary"
)

const (
	sheetOverview = "overview"
	sheetDetails  = "details"
)

// SaveSheet exports the overview and details tables to an xlsx workbook.
func SaveSheet(agg *summary.AggregatedResult, path string) error {
	sheet := excelize.NewFile()
	defer func() {
		if err := sheet.Close(); err != nil {
			log.Error(err)
		}
	}()

	for _, s := range []struct {
		name  string
		table *Table
	}{
		{sheetOverview, NewOverviewTable(agg)},
		{sheetDetails, NewDetailsTable(agg)},
	} {
		idx, err := sheet.NewSheet(s.name)
		if err != nil {
			return fmt.Errorf("unable to create sheet %q: %v", s.name, err)
		}
		if s.name == sheetOverview {
			sheet.SetActiveSheet(idx)
		}
		if err := populateSheet(sheet, s.name, s.table); err != nil {
			return err
		}
	}
	// drop the default sheet created with the workbook
	if err := sheet.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	if err := sheet.SaveAs(path); err != nil {
		return fmt.Errorf("unable to save sheet %q: %v", path, err)
	}
	log.Infof("Workbook saved to %s", path)
	return nil
}

// populateSheet writes the header on the first row then one row per table row.
func populateSheet(sheet *excelize.File, name string, table *Table) error {
	for col, h := range table.Header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		_ = sheet.SetCellValue(name, cell, h)
	}
	for rowN, row := range table.Rows {
		for col, c := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowN+2)
			if err != nil {
				return err
			}
			_ = sheet.SetCellValue(name, cell, c.Data)
			if c.Link != "" && c.Link != annotation.UnknownPath {
				_ = sheet.SetCellHyperLink(name, cell, c.Link, "External")
			}
		}
	}
	return nil
}
