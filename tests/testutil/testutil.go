package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/alphasafe/alphasafe-api/config"
	"github.com/alphasafe/alphasafe-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in TestMain or suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	if os.Getenv("GO_ENV") != "test" {
		t.Fatal("Failed to verify GO_ENV=test")
	}
}

// NewTestDB opens a private in-memory SQLite database with every table
// migrated. The pool is limited to one connection because each SQLite
// memory connection is its own database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateClient inserts a client with a unique tax identifier
func CreateClient(t *testing.T, db *gorm.DB, name string) *models.Client {
	t.Helper()

	var count int64
	db.Model(&models.Client{}).Count(&count)
	client := &models.Client{Name: name, NIF: fmt.Sprintf("5%08d", count+1)}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

// CreateTechnician inserts a field technician that accepts assignment and
// assistance notifications
func CreateTechnician(t *testing.T, db *gorm.DB, name, email string) *models.Technician {
	t.Helper()

	technician := &models.Technician{
		Name:                           name,
		Role:                           models.TechnicianRoleField,
		ReceiveAssignmentNotifications: true,
		ReceiveAssistanceNotifications: true,
		Active:                         models.AvailabilityActive,
	}
	if email != "" {
		technician.Email = &email
	}
	if err := db.Create(technician).Error; err != nil {
		t.Fatalf("Failed to create technician: %v", err)
	}
	return technician
}

// CreateOfficeTechnician inserts an office technician
func CreateOfficeTechnician(t *testing.T, db *gorm.DB, name, email string, billing bool) *models.Technician {
	t.Helper()

	technician := &models.Technician{
		Name:                        name,
		Role:                        models.TechnicianRoleOffice,
		ReceiveBillingNotifications: billing,
		Active:                      models.AvailabilityActive,
	}
	if email != "" {
		technician.Email = &email
	}
	if err := db.Create(technician).Error; err != nil {
		t.Fatalf("Failed to create office technician: %v", err)
	}
	return technician
}

// CreateUser inserts a user with an already hashed password
func CreateUser(t *testing.T, db *gorm.DB, email, role, passwordHash string) *models.User {
	t.Helper()

	user := &models.User{
		Email:     strings.ToLower(email),
		Password:  passwordHash,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}
