package services

import (
	"context"
	"errors"
	"strings"

	"github.com/alphasafe/alphasafe-api/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Password hashing costs. Self-registration uses the stronger one.
const (
	RegisterBcryptCost = 12
	AdminBcryptCost    = 10
)

// MinRegisterPasswordLength applies to self-registration only. Accounts
// created by an admin accept any non-empty password.
const MinRegisterPasswordLength = 8

// MaxPasswordBytes is the longest password bcrypt will hash
const MaxPasswordBytes = 72

// RegistrationPolicy restricts who may self-register. An empty whitelist
// allows everyone.
type RegistrationPolicy struct {
	Whitelist []string
}

// Allows reports whether email may self-register
func (p RegistrationPolicy) Allows(email string) bool {
	if len(p.Whitelist) == 0 {
		return true
	}
	email = normalizeEmail(email)
	for _, allowed := range p.Whitelist {
		if normalizeEmail(allowed) == email {
			return true
		}
	}
	return false
}

// RegisterInput is the self-registration payload
type RegisterInput struct {
	Email     *string `json:"email" validate:"required,email"`
	Password  *string `json:"password" validate:"required"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// LoginInput is the login payload
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserInput is the admin user payload. Nil fields are absent.
type UserInput struct {
	Email           *string `json:"email" validate:"omitempty,email"`
	Password        *string `json:"password"`
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Role            *string `json:"role"`
	ProfileImageURL *string `json:"profile_image_url"`
}

// UserService manages login identities. Nothing it returns carries the
// password hash.
type UserService struct {
	db           *gorm.DB
	logger       *zap.Logger
	registration RegistrationPolicy
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, logger *zap.Logger, registration RegistrationPolicy) *UserService {
	return &UserService{db: db, logger: logger, registration: registration}
}

// Register creates a technician account for a whitelisted email
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	if len(*in.Password) < MinRegisterPasswordLength {
		return nil, &ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}
	if err := checkPasswordLength(*in.Password); err != nil {
		return nil, err
	}
	firstName, err := required("first_name", in.FirstName)
	if err != nil {
		return nil, err
	}
	lastName, err := required("last_name", in.LastName)
	if err != nil {
		return nil, err
	}

	if !s.registration.Allows(*in.Email) {
		s.logger.Warn("registration rejected by whitelist", zap.String("email", *in.Email))
		return nil, &ConflictError{Code: CodeEmailNotWhitelisted, Message: "this email is not allowed to register"}
	}

	user := &models.User{
		Email:     *in.Email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      models.UserRoleTechnician,
	}
	if err := s.create(ctx, user, *in.Password, RegisterBcryptCost); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))

	public := user.Public()
	return &public, nil
}

// Login checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.PublicUser, error) {
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	invalid := &UnauthorizedError{Message: "invalid email or password"}
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(in.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, internal("find user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, invalid
	}

	public := user.Public()
	return &public, nil
}

// List returns every user, newest first
func (s *UserService) List(ctx context.Context) ([]models.PublicUser, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, internal("list users", err)
	}

	public := make([]models.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}
	return public, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, id string) (*models.PublicUser, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

// Create stores a user on behalf of an admin
func (s *UserService) Create(ctx context.Context, in UserInput) (*models.PublicUser, error) {
	if in.Email == nil {
		return nil, &ValidationError{Field: "email", Message: "is required"}
	}
	password, err := s.checkUser(&in)
	if err != nil {
		return nil, err
	}
	if password == nil {
		return nil, &ValidationError{Field: "password", Message: "is required"}
	}
	firstName, err := required("first_name", in.FirstName)
	if err != nil {
		return nil, err
	}
	lastName, err := required("last_name", in.LastName)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:           *in.Email,
		FirstName:       firstName,
		LastName:        lastName,
		Role:            models.UserRoleTechnician,
		ProfileImageURL: optionalText(in.ProfileImageURL),
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if err := s.create(ctx, user, *password, AdminBcryptCost); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", user.Role))

	public := user.Public()
	return &public, nil
}

// Update applies a partial update to a user. A supplied password is hashed
// again before it is stored.
func (s *UserService) Update(ctx context.Context, id string, in UserInput) (*models.PublicUser, error) {
	password, err := s.checkUser(&in)
	if err != nil {
		return nil, err
	}
	for field, value := range map[string]*string{"first_name": in.FirstName, "last_name": in.LastName} {
		if value != nil {
			if _, err := notBlank(field, *value); err != nil {
				return nil, err
			}
		}
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil && *in.Email != user.Email {
		if err := s.requireUniqueEmail(ctx, *in.Email); err != nil {
			return nil, err
		}
		user.Email = *in.Email
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.ProfileImageURL != nil {
		user.ProfileImageURL = optionalText(in.ProfileImageURL)
	}
	if password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), AdminBcryptCost)
		if err != nil {
			return nil, internal("hash password", err)
		}
		user.Password = string(hash)
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, internal("update user", err)
	}

	public := user.Public()
	return &public, nil
}

// Delete removes a user
func (s *UserService) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return internal("delete user", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Resource: "user"}
	}
	return nil
}

// checkUser normalizes and validates the present fields of an admin payload
// and returns the password to hash, if any
func (s *UserService) checkUser(in *UserInput) (*string, error) {
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, &ValidationError{Field: "email", Message: "is required"}
		}
		in.Email = &email
	}
	if err := checkStruct(*in); err != nil {
		return nil, err
	}
	if in.Role != nil {
		if err := oneOf("role", *in.Role, models.IsValidUserRole, models.UserRoles); err != nil {
			return nil, err
		}
	}
	if in.Password != nil && *in.Password == "" {
		return nil, &ValidationError{Field: "password", Message: "must not be empty"}
	}
	if in.Password != nil {
		if err := checkPasswordLength(*in.Password); err != nil {
			return nil, err
		}
	}
	return in.Password, nil
}

func checkPasswordLength(password string) error {
	if len(password) > MaxPasswordBytes {
		return &ValidationError{Field: "password", Message: "must be at most 72 bytes"}
	}
	return nil
}

func (s *UserService) create(ctx context.Context, user *models.User, password string, cost int) error {
	if err := s.requireUniqueEmail(ctx, user.Email); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return internal("hash password", err)
	}
	user.Password = string(hash)

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return userExists()
		}
		return internal("create user", err)
	}
	return nil
}

func (s *UserService) requireUniqueEmail(ctx context.Context, email string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return internal("check email", err)
	}
	if count > 0 {
		return userExists()
	}
	return nil
}

func (s *UserService) find(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, internal("get user", err)
	}
	return &user, nil
}

func userExists() error {
	return &ConflictError{Code: CodeUserExists, Message: "a user with this email already exists"}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
