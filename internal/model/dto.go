package model

import "time"

// AddModelRequest is the request body for POST /api/models, mirrored to
// the backend register call.
type AddModelRequest struct {
	Username      string    `json:"username" binding:"required"`
	AddedAt       time.Time `json:"addedAt"`
	RecordQuality string    `json:"recordQuality"`
	RetentionDays int       `json:"retentionDays"`
	AutoRecord    bool      `json:"autoRecord"`
}

// StartSessionRequest is the backend POST /api/start body.
type StartSessionRequest struct {
	Target     string `json:"target"`
	SourceType string `json:"source_type"`
	Person     string `json:"person"`
	Name       string `json:"name"`
}

// StopSessionResponse is the backend stop acknowledgement.
type StopSessionResponse struct {
	Stopped bool   `json:"stopped"`
	ID      string `json:"id"`
}
