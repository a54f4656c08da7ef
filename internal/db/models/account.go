package models

import "time"

// ConnectedAccount is the cached connection for one dashboard provider key.
type ConnectedAccount struct {
	Key       string `gorm:"primaryKey"` // gmail, outlook, instagram, linkedin
	Provider  string // Unipile provider id, e.g. GOOGLE
	AccountID string `gorm:"index"`
	Status    string
	Email     string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
