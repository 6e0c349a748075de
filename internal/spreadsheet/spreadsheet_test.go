package spreadsheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestParseEquipmentRows(t *testing.T) {
	r := workbook(t, [][]any{
		{"Device Name", "Brand", "Serial Number", "Inventory Code", "Status"},
		{"Monitor", "Philips", "SN-1", "", "Active"},
		{"", "", "", "", ""},
		{"  ", "Dell", "SN-3", "HOS-ICU-0009", ""},
	})

	rows, err := ParseEquipmentRows(r)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "Monitor", rows[0].DeviceName)
	assert.Equal(t, "Philips", rows[0].Brand)
	assert.Equal(t, "SN-1", rows[0].SerialNumber)
	assert.Equal(t, "Active", rows[0].Status)

	// the blank line is skipped but row numbers keep their sheet position
	assert.Equal(t, 4, rows[1].Row)
	assert.Equal(t, "", rows[1].DeviceName)
	assert.Equal(t, "HOS-ICU-0009", rows[1].InvCode)
}

func TestParseEquipmentRows_HeaderAliases(t *testing.T) {
	r := workbook(t, [][]any{
		{"NAME", "serial", "Quantity", "User"},
		{"Chair", "C-1", "4 pcs", "Reception"},
	})

	rows, err := ParseEquipmentRows(r)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Chair", rows[0].DeviceName)
	assert.Equal(t, "C-1", rows[0].SerialNumber)
	assert.Equal(t, "4 pcs", rows[0].QuantityNote)
	assert.Equal(t, "Reception", rows[0].UserNote)
}

func TestParseEquipmentRows_MissingNameColumn(t *testing.T) {
	_, err := ParseEquipmentRows(workbook(t, [][]any{{"Brand"}, {"Dell"}}))
	assert.Error(t, err)

	_, err = ParseEquipmentRows(strings.NewReader("not a workbook"))
	assert.Error(t, err)
}

func TestImportTemplate_RoundTrip(t *testing.T) {
	b, err := ImportTemplate()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ImportHeader, rows[0])

	parsed, err := ParseEquipmentRows(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "ICU", SheetName("ICU", used))
	// dedup ignores case, the suffixed name keeps its own spelling
	assert.Equal(t, "icu (2)", SheetName("icu", used))
	assert.Equal(t, "Lab_A", SheetName("Lab/A", used))
	assert.Equal(t, "Room", SheetName("   ", used))

	long := strings.Repeat("x", 40)
	first := SheetName(long, used)
	assert.Len(t, first, 31)
	second := SheetName(long, used)
	assert.Len(t, second, 31)
	assert.True(t, strings.HasSuffix(second, " (2)"))
}

func TestExportOrganization(t *testing.T) {
	b, err := ExportOrganization([]RoomSheet{
		{RoomName: "ICU", Equipment: []*domain.Equipment{
			{InvCode: "HOS-ICU-0001", Name: "Monitor", Category: "Medical", Brand: "Philips", Status: "Active"},
			{InvCode: "HOS-ICU-0002", Name: "Pump", Category: "Medical", Status: "Repair", Description: "left wing"},
		}},
		{RoomName: "ER"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"ICU", "ER"}, f.GetSheetList())

	rows, err := f.GetRows("ICU")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ExportHeader, rows[0])
	require.GreaterOrEqual(t, len(rows[1]), 8)
	assert.Equal(t, []string{"HOS-ICU-0001", "Monitor", "Medical", "Philips", "", "", "", "Active"}, rows[1][:8])
	assert.Equal(t, "left wing", rows[2][8])

	rows, err = f.GetRows("ER")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExportOrganization_NoRooms(t *testing.T) {
	b, err := ExportOrganization(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 1)
}
