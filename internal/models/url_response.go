package models

import "linkly-api/internal/entities"

// LinkResponse wraps a single short link
type LinkResponse struct {
	Success bool                `json:"success"`
	Data    *entities.ShortLink `json:"data"`
}

// LinkListResponse wraps the links owned by a user
type LinkListResponse struct {
	Success bool                  `json:"success"`
	Count   int                   `json:"count"`
	Data    []*entities.ShortLink `json:"data"`
}

// ErrorResponse is the envelope for every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"` // Only outside production
	Stack   string `json:"stack,omitempty"`   // Only outside production
}
