package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alphasafe/alphasafe-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TechnicianInput is the raw technician payload. Nil fields are absent and
// empty date strings clear the stored date.
type TechnicianInput struct {
	Name                           *string `json:"name"`
	Email                          *string `json:"email" validate:"omitempty,email"`
	Role                           *string `json:"role"`
	ReceiveAssignmentNotifications *bool   `json:"receive_assignment_notifications"`
	ReceiveBillingNotifications    *bool   `json:"receive_billing_notifications"`
	ReceiveAssistanceNotifications *bool   `json:"receive_assistance_notifications"`
	Active                         *string `json:"active"`
	VacationStart                  *string `json:"vacation_start"`
	VacationEnd                    *string `json:"vacation_end"`
	SickLeaveStart                 *string `json:"sick_leave_start"`
	SickLeaveEnd                   *string `json:"sick_leave_end"`
	TerminationDate                *string `json:"termination_date"`
	CreatedAt                      *string `json:"created_at"`
}

// ValidateTechnician checks a full technician payload and returns the record
// to insert with the default role, availability and notification flags
func ValidateTechnician(in TechnicianInput) (*models.Technician, error) {
	name, err := required("name", in.Name)
	if err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}

	technician := &models.Technician{
		Name:                           name,
		Role:                           models.TechnicianRoleField,
		ReceiveAssignmentNotifications: true,
		ReceiveBillingNotifications:    false,
		ReceiveAssistanceNotifications: true,
		Active:                         models.AvailabilityActive,
	}
	if err := in.ApplyTo(technician); err != nil {
		return nil, err
	}
	if in.CreatedAt != nil {
		createdAt, err := parseOptionalDate("created_at", in.CreatedAt)
		if err != nil {
			return nil, err
		}
		if createdAt != nil {
			technician.CreatedAt = *createdAt
		}
	}
	return technician, nil
}

// ValidateTechnicianPatch checks only the fields present in a partial update
func ValidateTechnicianPatch(in TechnicianInput) error {
	if in.Name != nil {
		if _, err := notBlank("name", *in.Name); err != nil {
			return err
		}
	}
	return in.check()
}

func (in TechnicianInput) check() error {
	in.Email = optionalText(in.Email)
	if err := checkStruct(in); err != nil {
		return err
	}
	if in.Role != nil {
		if err := oneOf("role", *in.Role, models.IsValidTechnicianRole, models.TechnicianRoles); err != nil {
			return err
		}
	}
	if in.Active != nil {
		if err := oneOf("active", *in.Active, models.IsValidAvailability, models.AvailabilityStatuses); err != nil {
			return err
		}
	}
	for field, value := range in.dates() {
		if _, err := parseOptionalDate(field, value); err != nil {
			return err
		}
	}
	return nil
}

func (in TechnicianInput) dates() map[string]*string {
	return map[string]*string{
		"vacation_start":   in.VacationStart,
		"vacation_end":     in.VacationEnd,
		"sick_leave_start": in.SickLeaveStart,
		"sick_leave_end":   in.SickLeaveEnd,
		"termination_date": in.TerminationDate,
	}
}

// ApplyTo copies the present fields onto technician. Date ranges are stored
// whatever the availability status; the evaluator decides which ones count.
func (in TechnicianInput) ApplyTo(technician *models.Technician) error {
	if in.Name != nil {
		technician.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		technician.Email = optionalText(in.Email)
	}
	if in.Role != nil {
		technician.Role = *in.Role
	}
	if in.ReceiveAssignmentNotifications != nil {
		technician.ReceiveAssignmentNotifications = *in.ReceiveAssignmentNotifications
	}
	if in.ReceiveBillingNotifications != nil {
		technician.ReceiveBillingNotifications = *in.ReceiveBillingNotifications
	}
	if in.ReceiveAssistanceNotifications != nil {
		technician.ReceiveAssistanceNotifications = *in.ReceiveAssistanceNotifications
	}
	if in.Active != nil {
		technician.Active = *in.Active
	}

	targets := map[string]**time.Time{
		"vacation_start":   &technician.VacationStart,
		"vacation_end":     &technician.VacationEnd,
		"sick_leave_start": &technician.SickLeaveStart,
		"sick_leave_end":   &technician.SickLeaveEnd,
		"termination_date": &technician.TerminationDate,
	}
	for field, value := range in.dates() {
		if value == nil {
			continue
		}
		date, err := parseOptionalDate(field, value)
		if err != nil {
			return err
		}
		*targets[field] = date
	}
	return nil
}

// TechnicianAvailability is a technician with its availability on a given day
type TechnicianAvailability struct {
	models.Technician
	Available bool   `json:"available"`
	Reason    string `json:"unavailable_reason,omitempty"`
}

// WithAvailability evaluates every technician against day
func WithAvailability(technicians []models.Technician, day time.Time) []TechnicianAvailability {
	out := make([]TechnicianAvailability, 0, len(technicians))
	for i := range technicians {
		t := &technicians[i]
		out = append(out, TechnicianAvailability{
			Technician: *t,
			Available:  t.IsAvailable(day),
			Reason:     t.UnavailableReason(day),
		})
	}
	return out
}

// TechnicianService manages technicians
type TechnicianService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTechnicianService creates a new technician service
func NewTechnicianService(db *gorm.DB, logger *zap.Logger) *TechnicianService {
	return &TechnicianService{db: db, logger: logger}
}

// List returns every technician, newest first
func (s *TechnicianService) List(ctx context.Context) ([]models.Technician, error) {
	var technicians []models.Technician
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&technicians).Error; err != nil {
		return nil, internal("list technicians", err)
	}
	return technicians, nil
}

// ListAvailable returns the technicians that can be assigned on day
func (s *TechnicianService) ListAvailable(ctx context.Context, day time.Time) ([]models.Technician, error) {
	technicians, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]models.Technician, 0, len(technicians))
	for _, t := range technicians {
		if t.IsAvailable(day) {
			available = append(available, t)
		}
	}
	return available, nil
}

// FindByName returns every technician with exactly this name. No match is
// not an error.
func (s *TechnicianService) FindByName(ctx context.Context, name string) ([]models.Technician, error) {
	var technicians []models.Technician
	if err := s.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).Order("id").Find(&technicians).Error; err != nil {
		return nil, internal("find technicians by name", err)
	}
	return technicians, nil
}

// office returns the billing office staff
func (s *TechnicianService) office(ctx context.Context) ([]models.Technician, error) {
	var technicians []models.Technician
	if err := s.db.WithContext(ctx).Where("role = ?", models.TechnicianRoleOffice).Order("id").Find(&technicians).Error; err != nil {
		return nil, internal("list office staff", err)
	}
	return technicians, nil
}

// Get returns one technician
func (s *TechnicianService) Get(ctx context.Context, id uint) (*models.Technician, error) {
	var technician models.Technician
	if err := s.db.WithContext(ctx).First(&technician, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "technician"}
		}
		return nil, internal("get technician", err)
	}
	return &technician, nil
}

// Create validates and stores a new technician
func (s *TechnicianService) Create(ctx context.Context, in TechnicianInput) (*models.Technician, error) {
	technician, err := ValidateTechnician(in)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(technician).Error; err != nil {
		return nil, internal("create technician", err)
	}
	s.logger.Info("technician created", zap.Uint("technician_id", technician.ID), zap.String("role", technician.Role))
	return technician, nil
}

// Update applies a partial update to a technician
func (s *TechnicianService) Update(ctx context.Context, id uint, in TechnicianInput) (*models.Technician, error) {
	if err := ValidateTechnicianPatch(in); err != nil {
		return nil, err
	}
	technician, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.ApplyTo(technician); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(technician).Error; err != nil {
		return nil, internal("update technician", err)
	}
	return technician, nil
}

// Delete removes a technician. Interventions keep the technician name.
func (s *TechnicianService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Technician{}, id)
	if result.Error != nil {
		return internal("delete technician", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Resource: "technician"}
	}
	return nil
}
