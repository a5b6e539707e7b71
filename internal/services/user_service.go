package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Errors returned by the user service. Callers map them to HTTP status codes with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("access denied")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("user with this email already exists")
)

var validate = validator.New()

// DeletePolicy decides who may delete users
type DeletePolicy string

const (
	// DeleteAdminOnly restricts deletion to callers holding the admin role
	DeleteAdminOnly DeletePolicy = "admin"
	// DeleteAnyAuthenticated allows any resolved caller to delete
	DeleteAnyAuthenticated DeletePolicy = "authenticated"
)

// UserInput carries the fields for register and create
type UserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UserUpdate carries a partial update. Nil or empty fields are left untouched.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
}

// UserService provides the user management operations
type UserService interface {
	// Register creates a self-service account
	Register(ctx context.Context, in UserInput) (*models.User, error)
	// Login verifies credentials and returns the stored user
	Login(ctx context.Context, email, password string) (*models.User, error)
	// ListUsers returns every user ordered by id
	ListUsers(ctx context.Context) ([]models.User, error)
	// GetUserByID returns ErrUserNotFound when no user has the id
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateUser is the admin-facing creation flow, validated like Register
	CreateUser(ctx context.Context, in UserInput) (*models.User, error)
	// UpdateUser applies only the supplied fields
	UpdateUser(ctx context.Context, id uint, upd UserUpdate) (*models.User, error)
	// DeleteUser removes a user on behalf of caller
	DeleteUser(ctx context.Context, id uint, caller *models.User) error
	DeletePolicy() DeletePolicy
}

type userService struct {
	db     *gorm.DB
	policy DeletePolicy
}

// NewUserService creates a new instance of UserService
func NewUserService(db *gorm.DB, policy DeletePolicy) UserService {
	if policy != DeleteAnyAuthenticated {
		policy = DeleteAdminOnly
	}
	return &userService{db: db, policy: policy}
}

func (s *userService) DeletePolicy() DeletePolicy {
	return s.policy
}

func (s *userService) Register(ctx context.Context, in UserInput) (*models.User, error) {
	user, err := s.insert(ctx, in)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")
	return user, nil
}

func (s *userService) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	user, err := s.insert(ctx, in)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Info("User created")
	return user, nil
}

// insert relies on the unique index on email rather than a pre-check,
// so concurrent inserts with the same email cannot both succeed.
func (s *userService) insert(ctx context.Context, in UserInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: in.Password,
		Role:     models.NormalizeRole(in.Role),
	}
	if err := user.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uint, upd UserUpdate) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		changes := map[string]interface{}{}
		if upd.Role != nil && *upd.Role != "" {
			role := models.Role(*upd.Role)
			if !role.Valid() {
				return fmt.Errorf("%w: invalid role %q", ErrValidation, *upd.Role)
			}
			changes["role"] = string(role)
		}
		if upd.Name != nil && strings.TrimSpace(*upd.Name) != "" {
			changes["name"] = strings.TrimSpace(*upd.Name)
		}
		if upd.Email != nil {
			if email := normalizeEmail(*upd.Email); email != "" && email != user.Email {
				if err := validateEmail(email); err != nil {
					return err
				}
				changes["email"] = email
			}
		}
		if upd.Password != nil && *upd.Password != "" {
			hash, err := models.HashPassword(*upd.Password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			changes["password"] = hash
		}

		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&models.User{ID: id}).Updates(changes).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}

	log.WithField("user_id", id).Info("User updated")
	return &user, nil
}

func (s *userService) DeleteUser(ctx context.Context, id uint, caller *models.User) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	if s.policy == DeleteAdminOnly && !caller.IsAdmin() {
		return fmt.Errorf("%w: only administrators can delete users", ErrForbidden)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		// API clients act on behalf of their owner and go with it
		return tx.Where("user_id = ?", id).Delete(&models.OAuthClient{}).Error
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return fmt.Errorf("delete user %d: %w", id, err)
	}

	log.WithFields(log.Fields{"user_id": id, "deleted_by": caller.ID}).Info("User deleted")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if err := validate.Var(email, "email"); err != nil {
		return fmt.Errorf("%w: invalid email address %q", ErrValidation, email)
	}
	return nil
}

// isUniqueViolation recognises translated duplicate-key errors, falling back to
// driver messages for dialects without a translator
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate")
}

func isDomainError(err error) bool {
	for _, target := range []error{ErrValidation, ErrInvalidCredentials, ErrUnauthenticated, ErrForbidden, ErrUserNotFound, ErrEmailTaken} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
