package models

import "time"

// Client represents a customer of the installation company
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	NIF       string    `gorm:"column:nif;not null;index" json:"nif"` // tax identifier, 9 characters
	Address   *string   `json:"address"`
	Phone     *string   `json:"phone"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the Client model
func (Client) TableName() string {
	return "clients"
}
