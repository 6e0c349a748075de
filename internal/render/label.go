// Package render turns an equipment card into the text printed on asset labels
// and encoded into their QR codes.
package render

import (
	"strings"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
)

// LabelText one "key: value" line per field. Floor, brand, model and serial
// number are left out when empty.
func LabelText(card *domain.EquipmentCard) string {
	if card == nil || card.Equipment == nil {
		return ""
	}
	eq := card.Equipment

	lines := []struct {
		key      string
		value    string
		optional bool
	}{
		{"Organization", card.OrganizationName, false},
		{"Floor", card.FloorName, true},
		{"Room", card.RoomName, false},
		{"Inventory code", eq.InvCode, false},
		{"Name", eq.Name, false},
		{"Category", eq.Category, false},
		{"Brand", eq.Brand, true},
		{"Model", eq.Model, true},
		{"Serial number", eq.SerialNumber, true},
		{"Status", eq.Status, false},
	}

	var b strings.Builder
	for _, l := range lines {
		v := strings.TrimSpace(l.value)
		if v == "" && l.optional {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.key)
		b.WriteString(": ")
		b.WriteString(v)
	}
	return b.String()
}
