package spreadsheet

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"

	"github.com/xuri/excelize/v2"
)

// ExportHeader fixed export column order.
var ExportHeader = []string{
	"Inventory Code",
	"Name",
	"Category",
	"Brand",
	"Model",
	"Serial Number",
	"Color",
	"Status",
	"Description",
}

var exportWidths = []float64{18, 25, 15, 15, 15, 20, 12, 12, 35}

// RoomSheet equipment of one room, rendered as one worksheet.
type RoomSheet struct {
	RoomName  string
	Equipment []*domain.Equipment
}

const maxSheetName = 31

// SheetName makes a valid, unique worksheet name out of a room name.
// used is updated with the returned name.
func SheetName(roomName string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(roomName))
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Room"
	}
	name = truncate(name, maxSheetName)

	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := " (" + strconv.Itoa(n) + ")"
		candidate = truncate(name, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ExportOrganization writes one sheet per room. An organization without rooms
// still gets a single empty sheet so the workbook is valid.
func ExportOrganization(sheets []RoomSheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	used := map[string]bool{}
	first := true
	for _, rs := range sheets {
		name := SheetName(rs.RoomName, used)
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
		if err := writeHeader(f, name, ExportHeader, exportWidths); err != nil {
			return nil, err
		}
		for i, eq := range rs.Equipment {
			values := []any{
				eq.InvCode, eq.Name, eq.Category, eq.Brand, eq.Model,
				eq.SerialNumber, eq.Color, eq.Status, eq.Description,
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return nil, fmt.Errorf("failed to write row %d of %s: %w", i+2, name, err)
			}
		}
	}
	if first {
		if err := writeHeader(f, "Sheet1", ExportHeader, exportWidths); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return toBytes(f)
}

// writeHeader styled, frozen header row plus column widths
func writeHeader(f *excelize.File, sheet string, headers []string, widths []float64) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if col < len(widths) {
			name, _ := excelize.ColumnNumberToName(col + 1)
			if err := f.SetColWidth(sheet, name, name, widths[col]); err != nil {
				return fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}

func toBytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	return buf.Bytes(), nil
}
