package dto

import "time"

// StaffUpsertRequest payload for PUT /api/staff/:slackId.
type StaffUpsertRequest struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active *bool  `json:"active"`
}

// StaffResponse describes a staff member.
type StaffResponse struct {
	SlackID   string    `json:"slack_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
