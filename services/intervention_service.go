package services

import (
	"context"
	"errors"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/alphasafe/alphasafe-api/models"
	"github.com/alphasafe/alphasafe-api/notifications"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InterventionInput is the raw intervention payload. Nil fields are absent.
// An empty assistance_date clears the stored date.
type InterventionInput struct {
	ClientID       *int     `json:"client_id" validate:"omitempty,gt=0"`
	ServiceType    []string `json:"service_type"`
	EquipmentModel *string  `json:"equipment_model"`
	SerialNumber   *string  `json:"serial_number"`
	Status         *string  `json:"status"`
	AssistanceDate *string  `json:"assistance_date"`
	Technician     *string  `json:"technician"`
	Notes          *string  `json:"notes"`
}

// InterventionFilter narrows List. Zero fields do not filter.
type InterventionFilter struct {
	Status     string
	Technician string
	ClientID   uint
}

// PhotoInput attaches a photo by URL
type PhotoInput struct {
	URL *string `json:"url"`
}

// ValidateIntervention checks a full intervention payload and returns the
// record to insert. The client reference is checked by the service.
func ValidateIntervention(in InterventionInput) (*models.Intervention, error) {
	if in.ClientID == nil {
		return nil, &ValidationError{Field: "client_id", Message: "is required"}
	}
	if in.ServiceType == nil {
		return nil, &ValidationError{Field: "service_type", Message: "is required"}
	}
	equipment, err := required("equipment_model", in.EquipmentModel)
	if err != nil {
		return nil, err
	}
	serial, err := required("serial_number", in.SerialNumber)
	if err != nil {
		return nil, err
	}
	technician, err := required("technician", in.Technician)
	if err != nil {
		return nil, err
	}

	intervention := &models.Intervention{
		EquipmentModel: equipment,
		SerialNumber:   serial,
		Technician:     technician,
		Status:         models.StatusInProgress,
	}
	if err := in.check(); err != nil {
		return nil, err
	}
	if err := in.ApplyTo(intervention); err != nil {
		return nil, err
	}
	return intervention, nil
}

// ValidateInterventionPatch checks only the fields present in a partial update
func ValidateInterventionPatch(in InterventionInput) error {
	for field, value := range map[string]*string{
		"equipment_model": in.EquipmentModel,
		"serial_number":   in.SerialNumber,
		"technician":      in.Technician,
	} {
		if value != nil {
			if _, err := notBlank(field, *value); err != nil {
				return err
			}
		}
	}
	return in.check()
}

func (in InterventionInput) check() error {
	if err := checkStruct(in); err != nil {
		return err
	}
	if in.ClientID != nil && *in.ClientID <= 0 {
		return &ValidationError{Field: "client_id", Message: "must be greater than 0"}
	}
	if in.ServiceType != nil {
		if len(in.ServiceType) == 0 {
			return &ValidationError{Field: "service_type", Message: "must contain at least one service"}
		}
		for _, service := range in.ServiceType {
			if err := oneOf("service_type", service, models.IsValidServiceType, models.ServiceTypes); err != nil {
				return err
			}
		}
	}
	if in.Status != nil {
		if err := oneOf("status", *in.Status, models.IsValidStatus, models.InterventionStatuses); err != nil {
			return err
		}
	}
	_, err := parseOptionalDate("assistance_date", in.AssistanceDate)
	return err
}

// ApplyTo copies the present fields onto intervention. The input must have
// been validated.
func (in InterventionInput) ApplyTo(intervention *models.Intervention) error {
	if in.ClientID != nil {
		intervention.ClientID = uint(*in.ClientID)
	}
	if in.ServiceType != nil {
		intervention.ServiceType = dedupe(in.ServiceType)
	}
	if in.EquipmentModel != nil {
		intervention.EquipmentModel = strings.TrimSpace(*in.EquipmentModel)
	}
	if in.SerialNumber != nil {
		intervention.SerialNumber = strings.TrimSpace(*in.SerialNumber)
	}
	if in.Status != nil {
		intervention.Status = *in.Status
	}
	if in.AssistanceDate != nil {
		date, err := parseOptionalDate("assistance_date", in.AssistanceDate)
		if err != nil {
			return err
		}
		intervention.AssistanceDate = date
	}
	if in.Technician != nil {
		intervention.Technician = strings.TrimSpace(*in.Technician)
	}
	if in.Notes != nil {
		intervention.Notes = optionalText(in.Notes)
	}
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// ValidatePhotoURL accepts absolute http(s) URLs and image data URLs
func ValidatePhotoURL(in PhotoInput) (string, error) {
	raw, err := required("url", in.URL)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(raw, "data:image/") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &ValidationError{Field: "url", Message: "must be an http(s) URL or an image data URL"}
	}
	return raw, nil
}

// InterventionService manages interventions and their photos
type InterventionService struct {
	db          *gorm.DB
	logger      *zap.Logger
	notifier    notifications.Notifier
	policy      notifications.PolicyConfig
	images      *ImageService
	technicians *TechnicianService
}

// NewInterventionService creates a new intervention service. images may be
// nil when object storage is not configured; uploads are then rejected.
func NewInterventionService(db *gorm.DB, logger *zap.Logger, notifier notifications.Notifier, policy notifications.PolicyConfig, images *ImageService) *InterventionService {
	return &InterventionService{
		db:          db,
		logger:      logger,
		notifier:    notifier,
		policy:      policy,
		images:      images,
		technicians: NewTechnicianService(db, logger),
	}
}

func (s *InterventionService) withRelations(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Client").
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})
}

// List returns interventions matching filter, newest first
func (s *InterventionService) List(ctx context.Context, filter InterventionFilter) ([]models.Intervention, error) {
	query := s.withRelations(ctx).Order("created_at DESC, id DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if technician := strings.TrimSpace(filter.Technician); technician != "" {
		query = query.Where("LOWER(technician) LIKE ?", "%"+strings.ToLower(technician)+"%")
	}
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}

	var interventions []models.Intervention
	if err := query.Find(&interventions).Error; err != nil {
		return nil, internal("list interventions", err)
	}
	for i := range interventions {
		s.presign(ctx, &interventions[i])
	}
	return interventions, nil
}

// Get returns one intervention with its client and photos
func (s *InterventionService) Get(ctx context.Context, id uint) (*models.Intervention, error) {
	intervention, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.presign(ctx, intervention)
	return intervention, nil
}

func (s *InterventionService) load(ctx context.Context, id uint) (*models.Intervention, error) {
	var intervention models.Intervention
	if err := s.withRelations(ctx).First(&intervention, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "intervention"}
		}
		return nil, internal("get intervention", err)
	}
	return &intervention, nil
}

// Create validates and stores a new intervention, then notifies the
// assigned technician
func (s *InterventionService) Create(ctx context.Context, in InterventionInput) (*models.Intervention, error) {
	intervention, err := ValidateIntervention(in)
	if err != nil {
		return nil, err
	}
	if err := s.requireClient(ctx, intervention.ClientID); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(intervention).Error; err != nil {
		return nil, internal("create intervention", err)
	}
	s.logger.Info("intervention created",
		zap.Uint("intervention_id", intervention.ID),
		zap.String("status", intervention.Status),
	)

	created, err := s.Get(ctx, intervention.ID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, nil, created)
	return created, nil
}

// Update applies a partial update to an intervention and notifies whoever
// the transition concerns
func (s *InterventionService) Update(ctx context.Context, id uint, in InterventionInput) (*models.Intervention, error) {
	if err := ValidateInterventionPatch(in); err != nil {
		return nil, err
	}
	prev, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *prev
	if err := in.ApplyTo(&next); err != nil {
		return nil, err
	}
	if next.ClientID != prev.ClientID {
		if err := s.requireClient(ctx, next.ClientID); err != nil {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(&next).Error; err != nil {
		return nil, internal("update intervention", err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if prev.Status != updated.Status {
		s.logger.Info("intervention status changed",
			zap.Uint("intervention_id", id),
			zap.String("from", prev.Status),
			zap.String("to", updated.Status),
		)
	}
	s.notify(ctx, prev, updated)
	return updated, nil
}

// Delete removes an intervention and all of its photos in one transaction.
// Stored photo objects are removed afterwards; failures there are logged.
func (s *InterventionService) Delete(ctx context.Context, id uint) error {
	var keys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var photos []models.Photo
		if err := tx.Where("intervention_id = ?", id).Find(&photos).Error; err != nil {
			return internal("list intervention photos", err)
		}
		for _, photo := range photos {
			if photo.StorageKey != nil {
				keys = append(keys, *photo.StorageKey)
			}
		}

		if err := tx.Where("intervention_id = ?", id).Delete(&models.Photo{}).Error; err != nil {
			return internal("delete intervention photos", err)
		}
		result := tx.Delete(&models.Intervention{}, id)
		if result.Error != nil {
			return internal("delete intervention", result.Error)
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Resource: "intervention"}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("intervention deleted", zap.Uint("intervention_id", id), zap.Int("stored_photos", len(keys)))
	s.removeObjects(ctx, keys...)
	return nil
}

// AddPhoto attaches a photo by URL
func (s *InterventionService) AddPhoto(ctx context.Context, interventionID uint, in PhotoInput) (*models.Photo, error) {
	photoURL, err := ValidatePhotoURL(in)
	if err != nil {
		return nil, err
	}
	if err := s.requireIntervention(ctx, interventionID); err != nil {
		return nil, err
	}

	photo := &models.Photo{InterventionID: interventionID, URL: photoURL}
	if err := s.db.WithContext(ctx).Create(photo).Error; err != nil {
		return nil, internal("create photo", err)
	}
	return photo, nil
}

// UploadPhoto stores an uploaded image and attaches it to an intervention
func (s *InterventionService) UploadPhoto(ctx context.Context, interventionID uint, file *multipart.FileHeader) (*models.Photo, error) {
	if s.images == nil {
		return nil, internal("upload photo", errors.New("object storage is not configured"))
	}
	if err := s.requireIntervention(ctx, interventionID); err != nil {
		return nil, err
	}

	key, err := s.images.UploadImage(ctx, interventionID, file)
	if err != nil {
		if KindOf(err) == KindValidation {
			return nil, err
		}
		return nil, internal("upload photo", err)
	}

	photo := &models.Photo{InterventionID: interventionID, URL: key, StorageKey: &key}
	if err := s.db.WithContext(ctx).Create(photo).Error; err != nil {
		s.removeObjects(ctx, key)
		return nil, internal("create photo", err)
	}
	s.logger.Info("photo uploaded", zap.Uint("intervention_id", interventionID), zap.String("key", key))

	s.presignPhoto(ctx, photo)
	return photo, nil
}

// DeletePhoto removes one photo
func (s *InterventionService) DeletePhoto(ctx context.Context, id uint) error {
	var photo models.Photo
	if err := s.db.WithContext(ctx).First(&photo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "photo"}
		}
		return internal("get photo", err)
	}
	if err := s.db.WithContext(ctx).Delete(&photo).Error; err != nil {
		return internal("delete photo", err)
	}
	if photo.StorageKey != nil {
		s.removeObjects(ctx, *photo.StorageKey)
	}
	return nil
}

func (s *InterventionService) requireClient(ctx context.Context, clientID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", clientID).Count(&count).Error; err != nil {
		return internal("check client", err)
	}
	if count == 0 {
		return &NotFoundError{Resource: "client"}
	}
	return nil
}

func (s *InterventionService) requireIntervention(ctx context.Context, id uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Intervention{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return internal("check intervention", err)
	}
	if count == 0 {
		return &NotFoundError{Resource: "intervention"}
	}
	return nil
}

// notify evaluates the notification policy against the committed change.
// It never fails the caller.
func (s *InterventionService) notify(ctx context.Context, prev, next *models.Intervention) {
	if s.notifier == nil {
		return
	}

	staff, err := s.recipients(ctx, prev, next)
	if err != nil {
		s.logger.Error("failed to load technicians for notifications",
			zap.Uint("intervention_id", next.ID),
			zap.Error(err),
		)
		return
	}

	requests := notifications.Evaluate(prev, next, staff, s.policy)
	if len(requests) == 0 {
		return
	}
	// Detached so a cancelled request does not cancel delivery
	s.notifier.Notify(context.WithoutCancel(ctx), requests)
}

// recipients loads the technicians the policy may address: everyone named
// as the assignee, plus the billing office when the status moves to invoicing
func (s *InterventionService) recipients(ctx context.Context, prev, next *models.Intervention) ([]models.Technician, error) {
	var staff []models.Technician
	if next.Technician != "" {
		named, err := s.technicians.FindByName(ctx, next.Technician)
		if err != nil {
			return nil, err
		}
		staff = append(staff, named...)
	}

	if prev != nil && next.Status == models.StatusToInvoice && prev.Status != models.StatusToInvoice {
		office, err := s.technicians.office(ctx)
		if err != nil {
			return nil, err
		}
		for _, tech := range office {
			if tech.Name != next.Technician {
				staff = append(staff, tech)
			}
		}
	}
	return staff, nil
}

func (s *InterventionService) presign(ctx context.Context, intervention *models.Intervention) {
	for i := range intervention.Photos {
		s.presignPhoto(ctx, &intervention.Photos[i])
	}
}

func (s *InterventionService) presignPhoto(ctx context.Context, photo *models.Photo) {
	if s.images == nil || photo.StorageKey == nil {
		return
	}
	signed, err := s.images.ImageURL(ctx, *photo.StorageKey)
	if err != nil {
		s.logger.Warn("failed to presign photo", zap.Uint("photo_id", photo.ID), zap.Error(err))
		return
	}
	photo.URL = signed
}

func (s *InterventionService) removeObjects(ctx context.Context, keys ...string) {
	if s.images == nil {
		return
	}
	for _, key := range keys {
		if err := s.images.DeleteImage(ctx, key); err != nil {
			s.logger.Warn("failed to delete stored photo", zap.String("key", key), zap.Error(err))
		}
	}
}
