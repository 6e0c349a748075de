package domain

import "time"

// Organization top-level container (organizations table)
// HasFloors is fixed at creation and decides how rooms attach:
// true -> every room references a floor, false -> rooms attach directly (floor_id IS NULL)
type Organization struct {
	OrganizationID string    `db:"organization_id"`
	Name           string    `db:"name"`
	HasFloors      bool      `db:"has_floors"`
	CreatedAt      time.Time `db:"created_at"`
}

func (o *Organization) ToJSON() map[string]any {
	return map[string]any{
		"organization_id": o.OrganizationID,
		"name":            o.Name,
		"has_floors":      o.HasFloors,
		"created_at":      o.CreatedAt.Format(time.RFC3339),
	}
}
