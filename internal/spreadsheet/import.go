package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportHeader column titles of the import template, in order.
var ImportHeader = []string{
	"Device Name",
	"Brand",
	"Model",
	"Serial Number",
	"Color",
	"Inventory Code",
	"Quantity Note",
	"Status",
	"User Note",
}

// EquipmentRow one data row of an import sheet.
// Row is the 1-indexed sheet row, header included (first data row is 2).
type EquipmentRow struct {
	Row          int
	DeviceName   string
	Brand        string
	Model        string
	SerialNumber string
	Color        string
	InvCode      string
	QuantityNote string
	Status       string
	UserNote     string
}

// header aliases, compared lower-cased and trimmed
var importColumns = map[string]string{
	"device name":    "name",
	"name":           "name",
	"brand":          "brand",
	"model":          "model",
	"serial number":  "serial",
	"serial":         "serial",
	"color":          "color",
	"inventory code": "code",
	"inv code":       "code",
	"code":           "code",
	"quantity note":  "quantity",
	"quantity":       "quantity",
	"status":         "status",
	"user note":      "user",
	"user":           "user",
}

// ParseEquipmentRows reads the first sheet. Columns are located by header title;
// rows with every known cell empty are skipped.
func ParseEquipmentRows(r io.Reader) ([]EquipmentRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return []EquipmentRow{}, nil
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		if key, ok := importColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[key]; !dup {
				cols[key] = i
			}
		}
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("missing required column %q", "Device Name")
	}

	out := []EquipmentRow{}
	for i, raw := range rows[1:] {
		cell := func(key string) string {
			idx, ok := cols[key]
			if !ok || idx >= len(raw) {
				return ""
			}
			return strings.TrimSpace(raw[idx])
		}
		row := EquipmentRow{
			Row:          i + 2,
			DeviceName:   cell("name"),
			Brand:        cell("brand"),
			Model:        cell("model"),
			SerialNumber: cell("serial"),
			Color:        cell("color"),
			InvCode:      cell("code"),
			QuantityNote: cell("quantity"),
			Status:       cell("status"),
			UserNote:     cell("user"),
		}
		if row.isBlank() {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r EquipmentRow) isBlank() bool {
	return r.DeviceName == "" && r.Brand == "" && r.Model == "" && r.SerialNumber == "" &&
		r.Color == "" && r.InvCode == "" && r.QuantityNote == "" && r.Status == "" && r.UserNote == ""
}

// ImportTemplate an empty workbook carrying only the import header.
func ImportTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Equipment"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeHeader(f, sheet, ImportHeader, importWidths); err != nil {
		return nil, err
	}
	return toBytes(f)
}

var importWidths = []float64{25, 15, 15, 20, 12, 18, 15, 12, 25}
