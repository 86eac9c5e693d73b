package models

import "time"

// Photo is an image attached to an intervention
type Photo struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	InterventionID uint      `gorm:"not null;index" json:"intervention_id"` // foreign key to interventions table
	URL            string    `gorm:"type:text;not null" json:"url"`         // remote URL or data URL
	StorageKey     *string   `json:"-"`                                     // nullable, S3 key when uploaded through the API
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for the Photo model
func (Photo) TableName() string {
	return "photos"
}
