package models

import "time"

type Webhook struct {
	ID        string    `json:"id" db:"id"`
	UserID    int       `json:"userId" db:"user_id"`
	URL       string    `json:"url" db:"url"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
