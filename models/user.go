package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	UserRoleAdmin      = "admin"
	UserRoleTechnician = "technician"
)

// UserRoles lists every valid user role
var UserRoles = []string{UserRoleAdmin, UserRoleTechnician}

// User represents a login identity (admin or technician).
// A technician-role user is not linked to a Technician record.
type User struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email           string    `gorm:"uniqueIndex;not null" json:"email"` // always lower-case
	Password        string    `gorm:"not null" json:"-"`                 // bcrypt hash
	FirstName       string    `gorm:"not null" json:"first_name"`
	LastName        string    `gorm:"not null" json:"last_name"`
	Role            string    `gorm:"not null;default:'technician'" json:"role"` // "admin" or "technician"
	ProfileImageURL *string   `json:"profile_image_url"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// PublicUser is the only User shape that leaves the service layer.
// It has no password field.
type PublicUser struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Role            string    `json:"role"`
	ProfileImageURL *string   `json:"profile_image_url"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user has the admin role
func (u *PublicUser) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// Public strips the password hash from the user
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            u.Role,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// IsValidUserRole reports whether role is a user role
func IsValidUserRole(role string) bool {
	return contains(UserRoles, role)
}
