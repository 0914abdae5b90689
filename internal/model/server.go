package model

import "time"

// Server is an MDM server registered with the organization. At most one
// instance per ID exists for a given client.
type Server struct {
	ID        string     `json:"id"`
	Name      string     `json:"serverName"`
	Type      string     `json:"serverType,omitempty"`
	CreatedAt *time.Time `json:"createdDateTime,omitempty"`
	UpdatedAt *time.Time `json:"updatedDateTime,omitempty"`
}
