package models

import "time"

// User roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User statuses
const (
	UserActive   = "ACTIVE"
	UserInactive = "INACTIVE"
	UserBlocked  = "BLOCKED"
)

// Merchant levels, ordered lowest to highest.
const (
	LevelBronze     = "BRONZE"
	LevelSilver     = "SILVER"
	LevelGold       = "GOLD"
	LevelPlatinum   = "PLATINUM"
	LevelChallenger = "CHALLENGER"
)

type User struct {
	ID               int        `json:"id" example:"1"`
	Email            string     `json:"email" example:"merchant@example.com"`
	Username         string     `json:"username" example:"acme"`
	Name             string     `json:"name" example:"Acme Ltda"`
	Phone            string     `json:"phone" example:"+5511987654321"`
	CNPJ             string     `json:"cnpj" example:"12345678000190"`
	Segment          string     `json:"segment" example:"ECOMMERCE"`
	Address          string     `json:"address,omitempty"`
	City             string     `json:"city,omitempty"`
	State            string     `json:"state,omitempty"`
	Zip              string     `json:"zip,omitempty"`
	Role             string     `json:"role" example:"USER"`
	Status           string     `json:"status" example:"ACTIVE"`
	Level            string     `json:"level" example:"BRONZE"`
	MonthlyRevenue   int64      `json:"monthlyRevenue"`
	TotalRevenue     int64      `json:"totalRevenue"`
	TransactionCount int        `json:"transactionCount"`
	LastLevelUpdate  *time.Time `json:"lastLevelUpdate,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
