package domain

import "time"

// Floor floor of a floored organization (floors table)
type Floor struct {
	FloorID        string    `db:"floor_id"`
	OrganizationID string    `db:"organization_id"`
	Name           string    `db:"name"`
	CreatedAt      time.Time `db:"created_at"`
}

func (f *Floor) ToJSON() map[string]any {
	return map[string]any{
		"floor_id":        f.FloorID,
		"organization_id": f.OrganizationID,
		"name":            f.Name,
		"created_at":      f.CreatedAt.Format(time.RFC3339),
	}
}
