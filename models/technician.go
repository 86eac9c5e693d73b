package models

import "time"

// Technician roles
const (
	TechnicianRoleField  = "technician"
	TechnicianRoleOffice = "office"
)

// Technician availability statuses
const (
	AvailabilityActive    = "Active"
	AvailabilityVacation  = "Vacation"
	AvailabilitySickLeave = "Sick Leave"
	AvailabilityInactive  = "Inactive"
)

// AvailabilityStatuses lists every valid technician availability status
var AvailabilityStatuses = []string{AvailabilityActive, AvailabilityVacation, AvailabilitySickLeave, AvailabilityInactive}

// TechnicianRoles lists every valid technician role
var TechnicianRoles = []string{TechnicianRoleField, TechnicianRoleOffice}

// Technician is a staff member that can be scheduled on interventions.
// It is independent from the User login identity.
type Technician struct {
	ID                             uint       `gorm:"primaryKey" json:"id"`
	Name                           string     `gorm:"not null;index" json:"name"`
	Email                          *string    `json:"email"`
	Role                           string     `gorm:"not null;default:'technician'" json:"role"` // technician or office
	ReceiveAssignmentNotifications bool       `gorm:"not null" json:"receive_assignment_notifications"`
	ReceiveBillingNotifications    bool       `gorm:"not null" json:"receive_billing_notifications"`
	ReceiveAssistanceNotifications bool       `gorm:"not null" json:"receive_assistance_notifications"`
	Active                         string     `gorm:"not null;default:'Active'" json:"active"`
	VacationStart                  *time.Time `json:"vacation_start"`
	VacationEnd                    *time.Time `json:"vacation_end"`
	SickLeaveStart                 *time.Time `json:"sick_leave_start"`
	SickLeaveEnd                   *time.Time `json:"sick_leave_end"`
	TerminationDate                *time.Time `json:"termination_date"` // only meaningful when Inactive
	CreatedAt                      time.Time  `json:"created_at"`
}

// TableName specifies the table name for the Technician model
func (Technician) TableName() string {
	return "technicians"
}

// IsOffice reports whether the technician belongs to the billing office
func (t *Technician) IsOffice() bool {
	return t.Role == TechnicianRoleOffice
}

// ContactEmail returns the technician email or an empty string
func (t *Technician) ContactEmail() string {
	if t.Email == nil {
		return ""
	}
	return *t.Email
}

// IsValidAvailability reports whether status is a technician availability status
func IsValidAvailability(status string) bool {
	return contains(AvailabilityStatuses, status)
}

// IsValidTechnicianRole reports whether role is a technician role
func IsValidTechnicianRole(role string) bool {
	return contains(TechnicianRoles, role)
}
