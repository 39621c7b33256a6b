package models

import "time"

// Certificate is the terminal artifact of a concluded project. At most one
// exists per project; re-issuing replaces the file reference.
type Certificate struct {
	ID        string    `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	FileRef   string    `db:"file_ref" json:"file_ref"`
	IssuedBy  string    `db:"issued_by" json:"issued_by"`
	IssuedAt  time.Time `db:"issued_at" json:"issued_at"`
}
