package services

import (
	"context"
	"errors"
	"strings"

	"github.com/alphasafe/alphasafe-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClientInput is the raw client payload. Nil fields are absent.
type ClientInput struct {
	Name    *string `json:"name"`
	NIF     *string `json:"nif" validate:"omitempty,len=9"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email" validate:"omitempty,email"`
}

// ValidateClient checks a full client payload and returns the record to insert
func ValidateClient(in ClientInput) (*models.Client, error) {
	name, err := required("name", in.Name)
	if err != nil {
		return nil, err
	}
	nif, err := required("nif", in.NIF)
	if err != nil {
		return nil, err
	}
	in.NIF = &nif
	in.Email = optionalText(in.Email)
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	client := &models.Client{Name: name, NIF: nif}
	in.applyOptional(client)
	return client, nil
}

// ValidateClientPatch checks only the fields present in a partial update
func ValidateClientPatch(in ClientInput) error {
	if in.Name != nil {
		if _, err := notBlank("name", *in.Name); err != nil {
			return err
		}
	}
	if in.NIF != nil {
		nif, err := notBlank("nif", *in.NIF)
		if err != nil {
			return err
		}
		in.NIF = &nif
	}
	in.Email = optionalText(in.Email)
	return checkStruct(in)
}

// ApplyTo copies the present fields onto client
func (in ClientInput) ApplyTo(client *models.Client) {
	if in.Name != nil {
		client.Name = strings.TrimSpace(*in.Name)
	}
	if in.NIF != nil {
		client.NIF = strings.TrimSpace(*in.NIF)
	}
	in.applyOptional(client)
}

func (in ClientInput) applyOptional(client *models.Client) {
	if in.Address != nil {
		client.Address = optionalText(in.Address)
	}
	if in.Phone != nil {
		client.Phone = optionalText(in.Phone)
	}
	if in.Email != nil {
		client.Email = optionalText(in.Email)
	}
}

// ClientService manages clients
type ClientService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewClientService creates a new client service
func NewClientService(db *gorm.DB, logger *zap.Logger) *ClientService {
	return &ClientService{db: db, logger: logger}
}

// List returns every client, newest first. A non-empty search keeps only
// clients whose name or tax identifier contains it, ignoring case.
func (s *ClientService) List(ctx context.Context, search string) ([]models.Client, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(nif) LIKE ?", pattern, pattern)
	}

	var clients []models.Client
	if err := query.Find(&clients).Error; err != nil {
		return nil, internal("list clients", err)
	}
	return clients, nil
}

// Get returns one client
func (s *ClientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "client"}
		}
		return nil, internal("get client", err)
	}
	return &client, nil
}

// Create validates and stores a new client
func (s *ClientService) Create(ctx context.Context, in ClientInput) (*models.Client, error) {
	client, err := ValidateClient(in)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
		return nil, internal("create client", err)
	}
	s.logger.Info("client created", zap.Uint("client_id", client.ID))
	return client, nil
}

// Update applies a partial update to a client
func (s *ClientService) Update(ctx context.Context, id uint, in ClientInput) (*models.Client, error) {
	if err := ValidateClientPatch(in); err != nil {
		return nil, err
	}
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.ApplyTo(client)
	if err := s.db.WithContext(ctx).Save(client).Error; err != nil {
		return nil, internal("update client", err)
	}
	return client, nil
}

// Delete removes a client that has no interventions
func (s *ClientService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Intervention{}).Where("client_id = ?", id).Count(&count).Error; err != nil {
			return internal("count client interventions", err)
		}
		if count > 0 {
			return &ConflictError{Code: CodeClientInUse, Message: "client still has interventions"}
		}

		result := tx.Delete(&models.Client{}, id)
		if result.Error != nil {
			return internal("delete client", result.Error)
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Resource: "client"}
		}
		return nil
	})
}
