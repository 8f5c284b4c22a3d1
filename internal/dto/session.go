package dto

import "github.com/noah-isme/gettogather-api/internal/models"

// SessionResponse is the wire shape of a session snapshot.
type SessionResponse struct {
	State string       `json:"state"`
	Seq   uint64       `json:"seq"`
	User  *models.User `json:"user"`
	Mock  bool         `json:"mock"`
}

// SearchStreamRequest is one client frame on the search stream.
// Query and Category are applied only when present. Refresh re-runs the current
// search, for instance after the client learns the event list changed.
type SearchStreamRequest struct {
	Query    *string `json:"query"`
	Category *string `json:"category"`
	Refresh  bool    `json:"refresh"`
}
