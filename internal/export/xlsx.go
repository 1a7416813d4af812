// Package export writes offer sets to spreadsheets and Notion.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/kyiv-estate/rentscout/internal/model"
)

var xlsxHeader = []string{
	"Group", "Kind", "Size m2", "Price $", "Price $/m2",
	"Floor", "Class", "Metro", "Address", "Shore", "Link",
}

// WriteXLSX writes the offers to a single-sheet workbook at path.
func WriteXLSX(path string, offers []model.Offer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("offers")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, o := range offers {
		row := sheet.AddRow()
		row.AddCell().SetString(o.GroupName)
		row.AddCell().SetString(string(o.Kind))
		row.AddCell().SetFloat(o.SizeM2)
		row.AddCell().SetFloat(o.PriceTotal)
		row.AddCell().SetFloat(o.PricePerM2)
		row.AddCell().SetString(o.FloorLabel)
		row.AddCell().SetString(classOf(o))
		row.AddCell().SetString(o.Metro)
		row.AddCell().SetString(o.Address)
		row.AddCell().SetString(string(o.Shore))
		row.AddCell().SetString(o.Link)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func classOf(o model.Offer) string {
	if o.Kind == model.KindWarehouse {
		return o.WarehouseClass
	}
	return o.BCClass
}
