package model

import "time"

// Subject is read-only catalog metadata attached to assessments for
// display. It is maintained by an external collaborator.
type Subject struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
