package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/kyiv-estate/rentscout/internal/model"
)

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "offers.xlsx")
	offers := []model.Offer{
		{
			Kind: model.KindOffice, Identity: 12, GroupName: "БЦ Парус",
			SizeM2: 120, PriceTotal: 1500, PricePerM2: 12.5,
			FloorLabel: "5-й поверх", BCClass: "A", Metro: "Кловська",
			Link: "https://t.me/KyivOfficeRent/12",
		},
		{
			Kind: model.KindWarehouse, Identity: 7, GroupName: "Склад Позняки",
			SizeM2: 900, PriceTotal: 4500, PricePerM2: 5,
			Address: "вул. Здолбунівська 7", Shore: model.ShoreLeft, WarehouseClass: "B",
			Link: "https://t.me/KievSKLAD123/7",
		},
	}
	require.NoError(t, WriteXLSX(path, offers))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet["offers"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "Group", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "БЦ Парус", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "office", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "A", sheet.Rows[1].Cells[6].String())

	size, err := sheet.Rows[2].Cells[2].Float()
	require.NoError(t, err)
	assert.InDelta(t, 900, size, 0.001)
	assert.Equal(t, "left", sheet.Rows[2].Cells[9].String())
	assert.Equal(t, "B", sheet.Rows[2].Cells[6].String())
}

func TestWriteXLSXEmptySet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteXLSX(path, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheet["offers"].Rows, 1, "header only")
}
