package models

import "time"

// Intervention statuses
const (
	StatusInProgress = "In Progress"
	StatusToInvoice  = "To Invoice"
	StatusCompleted  = "Completed"
	StatusAssistance = "Assistance"
)

// Service types an intervention can be tagged with
const (
	ServiceVideoIntercom     = "Video Intercom"
	ServiceVideoSurveillance = "Video Surveillance"
	ServiceAlarm             = "Alarm"
	ServiceHomeAutomation    = "Home Automation"
	ServiceAccessControl     = "Access Control"
	ServiceFireSafety        = "Fire Safety Systems"
)

// InterventionStatuses lists every valid intervention status
var InterventionStatuses = []string{StatusInProgress, StatusToInvoice, StatusCompleted, StatusAssistance}

// ServiceTypes lists the fixed service-type vocabulary
var ServiceTypes = []string{
	ServiceVideoIntercom,
	ServiceVideoSurveillance,
	ServiceAlarm,
	ServiceHomeAutomation,
	ServiceAccessControl,
	ServiceFireSafety,
}

// Intervention represents an installation or repair job for a client
type Intervention struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ClientID       uint       `gorm:"not null;index" json:"client_id"` // foreign key to clients table
	Client         Client     `gorm:"foreignKey:ClientID" json:"client"`
	ServiceType    []string   `gorm:"type:text;not null;serializer:json" json:"service_type"`
	EquipmentModel string     `gorm:"not null" json:"equipment_model"`
	SerialNumber   string     `gorm:"not null" json:"serial_number"`
	Status         string     `gorm:"not null;default:'In Progress';index" json:"status"`
	AssistanceDate *time.Time `json:"assistance_date"`
	Technician     string     `gorm:"not null;index" json:"technician"` // technician name, not a foreign key
	Notes          *string    `gorm:"type:text" json:"notes"`
	Photos         []Photo    `gorm:"foreignKey:InterventionID" json:"photos"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Intervention model
func (Intervention) TableName() string {
	return "interventions"
}

// IsValidStatus reports whether status is one of the intervention statuses
func IsValidStatus(status string) bool {
	return contains(InterventionStatuses, status)
}

// IsValidServiceType reports whether serviceType belongs to the vocabulary
func IsValidServiceType(serviceType string) bool {
	return contains(ServiceTypes, serviceType)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
