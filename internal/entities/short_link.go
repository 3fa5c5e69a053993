package entities

import "time"

// ShortLink represents a shortened URL entity in the database
type ShortLink struct {
	ID        string    `json:"_id"` // UUID
	Code      string    `json:"urlCode"`
	LongURL   string    `json:"longUrl"`
	ShortURL  string    `json:"shortUrl"` // Base URL + code, stored for response convenience
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"date"`
	Owner     *string   `json:"user,omitempty"` // Pointer allows nil (for anonymous links), UUID
}
