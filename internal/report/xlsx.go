package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/siting-cli/internal/model"
	"github.com/sells-group/siting-cli/internal/suitability"
)

// Sheet names of the zones workbook.
const (
	SheetZones    = "Zones"
	SheetCriteria = "Criteria"
)

var (
	zoneHeader     = []string{"Region", "Cells", "Area_Ha", "Min", "Max", "Mean", "Min Row", "Min Col", "Max Row", "Max Col"}
	criteriaHeader = []string{"Criterion", "Cells", "Min", "Max", "Mean", "StdDev"}
)

// WriteXLSX writes the zones workbook: one row per zone, and one row per
// criterion grid plus the suitability surface.
func WriteXLSX(path string, zones []model.Zone, result *model.RunResult) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(SheetZones)
	if err != nil {
		return eris.Wrap(err, "report: add zones sheet")
	}
	addHeader(sheet, zoneHeader)
	for _, z := range zones {
		row := sheet.AddRow()
		row.AddCell().SetInt(z.RegionID)
		row.AddCell().SetInt(z.CellCount)
		row.AddCell().SetFloat(z.AreaHa)
		row.AddCell().SetFloat(z.MinValue)
		row.AddCell().SetFloat(z.MaxValue)
		row.AddCell().SetFloat(z.MeanValue)
		row.AddCell().SetInt(z.Bounds.MinRow)
		row.AddCell().SetInt(z.Bounds.MinCol)
		row.AddCell().SetInt(z.Bounds.MaxRow)
		row.AddCell().SetInt(z.Bounds.MaxCol)
	}

	sheet, err = f.AddSheet(SheetCriteria)
	if err != nil {
		return eris.Wrap(err, "report: add criteria sheet")
	}
	addHeader(sheet, criteriaHeader)
	if result != nil {
		for _, name := range suitability.Criteria {
			if s, ok := result.Criteria[name]; ok {
				addStats(sheet, name, s)
			}
		}
		addStats(sheet, "suitability", result.Surface)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, names []string) {
	row := sheet.AddRow()
	for _, n := range names {
		row.AddCell().SetString(n)
	}
}

func addStats(sheet *xlsx.Sheet, name string, s suitability.Stats) {
	row := sheet.AddRow()
	row.AddCell().SetString(name)
	row.AddCell().SetInt(s.Count)
	row.AddCell().SetFloat(s.Min)
	row.AddCell().SetFloat(s.Max)
	row.AddCell().SetFloat(s.Mean)
	row.AddCell().SetFloat(s.StdDev)
}
