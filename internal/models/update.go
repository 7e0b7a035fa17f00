package models

import "time"

// IncidentUpdate is a timestamped entry in an incident's update log.
// Author is the caller-supplied email of the poster; CreatedBy is the
// authenticated actor, nil for anonymous writes.
type IncidentUpdate struct {
	ID         int64     `db:"id" json:"id"`
	IncidentID int64     `db:"incident_id" json:"incident_id"`
	Content    string    `db:"content" json:"content"`
	Author     string    `db:"author" json:"author"`
	UpdateType string    `db:"update_type" json:"update_type"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
	CreatedBy  *string   `db:"created_by" json:"created_by"`
}

// UpdateTypeDefault is applied when a posted update omits its type.
const UpdateTypeDefault = "update"
