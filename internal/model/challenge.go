package model

import "github.com/goccy/go-json"

// ChallengeRequest is the JSON body accepted by the challenge endpoint.
// Pointer fields distinguish "not supplied" from zero values.
type ChallengeRequest struct {
	Username       string `json:"username" validate:"required"`
	Rated          *bool  `json:"rated,omitempty"`
	ClockLimit     *int   `json:"clockLimit,omitempty"`
	ClockIncrement *int   `json:"clockIncrement,omitempty"`
	Days           *int   `json:"days,omitempty"`
	Color          string `json:"color,omitempty"`
	Variant        string `json:"variant,omitempty"`
	FEN            string `json:"fen,omitempty"`
}

// ChallengeResult is the success envelope returned after a challenge is created.
// LichessURL is nil when the upstream payload carries no challenge id.
type ChallengeResult struct {
	Success    bool            `json:"success"`
	Challenge  json.RawMessage `json:"challenge"`
	LichessURL *string         `json:"lichessUrl"`
	Message    string          `json:"message"`
}
