package models

import "time"

// PlatformSettings holds the single-row platform branding record.
type PlatformSettings struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	LogoURL     string    `json:"logoUrl" db:"logo_url"`
	SupportMail string    `json:"supportEmail" db:"support_email"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Adquirente is an acquirer (PrimePag, Zendry, ...) configuration
// record. Credentials are stored opaquely; no acquirer protocol is
// implemented here.
type Adquirente struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Enabled     bool      `json:"enabled" db:"enabled"`
	Credentials string    `json:"credentials,omitempty" db:"credentials"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
