package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/formdesk/server/internal/models"
	"github.com/formdesk/server/pkg/logger"
	"github.com/formdesk/server/pkg/utils"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type ProfileUpdate struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService owns user accounts. Token issuance stays with the HTTP layer.
type AuthService struct {
	DB *gorm.DB
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{DB: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || input.Password == "" || name == "" {
		return nil, ValidationError("All fields are required")
	}
	if len(input.Password) < utils.MinPasswordLength {
		return nil, ValidationError(fmt.Sprintf("Password must be at least %d characters long", utils.MinPasswordLength))
	}
	if !validEmail(email) {
		return nil, ValidationError("Invalid email format")
	}

	taken, err := s.emailTaken(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ConflictError("User with this email already exists")
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, &Error{Kind: KindInternal, Message: "hash password", Err: err}
	}

	user := &models.User{Email: email, PasswordHash: hash, Name: name}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		return nil, StorageError("create user", err)
	}

	logger.InfoWithUser(userIDString(user.ID), "user_registered", map[string]interface{}{"email": user.Email})
	return user, nil
}

// Login returns the user for valid credentials. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ValidationError("Email and password are required")
	}

	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, StorageError("find user", err)
	}
	if err != nil || !utils.CheckPassword(user.PasswordHash, password) {
		logger.Warn("login_failed", map[string]interface{}{"email": email})
		return nil, AuthRequiredError("Invalid credentials")
	}

	logger.InfoWithUser(userIDString(user.ID), "user_logged_in", nil)
	return &user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("User not found")
		}
		return nil, StorageError("load user", err)
	}
	return &user, nil
}

// UpdateProfile changes the non-empty fields of update.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error) {
	fields := map[string]interface{}{}

	if name := strings.TrimSpace(update.Name); name != "" {
		fields["name"] = name
	}
	if update.Email != "" {
		email := normalizeEmail(update.Email)
		if !validEmail(email) {
			return nil, ValidationError("Invalid email format")
		}
		taken, err := s.emailTaken(ctx, email, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ConflictError("Email already taken")
		}
		fields["email"] = email
	}
	if update.Password != "" {
		if len(update.Password) < utils.MinPasswordLength {
			return nil, ValidationError(fmt.Sprintf("Password must be at least %d characters long", utils.MinPasswordLength))
		}
		hash, err := utils.HashPassword(update.Password)
		if err != nil {
			return nil, &Error{Kind: KindInternal, Message: "hash password", Err: err}
		}
		fields["password_hash"] = hash
	}
	if len(fields) == 0 {
		return nil, ValidationError("No fields to update")
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(user).Updates(fields).Error; err != nil {
		return nil, StorageError("update user", err)
	}

	logger.InfoWithUser(userIDString(userID), "profile_updated", map[string]interface{}{"fields": len(fields)})
	return s.Profile(ctx, userID)
}

func (s *AuthService) emailTaken(ctx context.Context, email string, exceptUserID uint) (bool, error) {
	var count int64
	query := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptUserID != 0 {
		query = query.Where("id <> ?", exceptUserID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, StorageError("check email", err)
	}
	return count > 0, nil
}
