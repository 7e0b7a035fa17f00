package models

import "time"

// IncidentDocument is a titled link attached to an incident. Documents
// are cascade-deleted with their parent.
type IncidentDocument struct {
	ID         int64     `db:"id" json:"id"`
	IncidentID int64     `db:"incident_id" json:"incident_id"`
	Title      string    `db:"title" json:"title"`
	URL        string    `db:"url" json:"url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DocumentFilter scopes document collection queries.
type DocumentFilter struct {
	IncidentID int64
	Search     string
}
