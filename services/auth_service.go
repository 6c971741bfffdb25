package services

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	confirmTokenTTL = 48 * time.Hour
	loginCodeTTL    = 15 * time.Minute
	minPasswordLen  = 8
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthService struct {
	db      *gorm.DB
	baseURL string
}

func NewAuthService(db *gorm.DB, publicBaseURL string) *AuthService {
	return &AuthService{db: db, baseURL: publicBaseURL}
}

// Register creates an owner account and issues an email confirmation link.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.createUser(ctx, in, models.RoleOwner, nil)
}

// CreateStaff adds a staff account bound to one establishment.
func (s *AuthService) CreateStaff(ctx context.Context, establishmentID uint, in RegisterInput) (*models.User, error) {
	return s.createUser(ctx, in, models.RoleStaff, &establishmentID)
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role string, establishmentID *uint) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email %q is not valid", in.Email)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("name is required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, invalid("password must be at least %d characters", minPasswordLen)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, conflict("email %s is already registered", email)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:            strings.TrimSpace(in.Name),
		Email:           email,
		Password:        string(hashed),
		Role:            role,
		EstablishmentID: establishmentID,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("New user registered: %s (role=%s)", user.Email, user.Role)
	if err := s.IssueEmailConfirmation(&user); err != nil {
		utils.ErrorLogger.Printf("Could not issue confirmation for %s: %v", user.Email, err)
	}
	return &user, nil
}

// Login checks the password and returns an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (s *AuthService) ListStaff(ctx context.Context, establishmentID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("establishment_id = ? AND role = ?", establishmentID, models.RoleStaff).
		Order("name asc").
		Find(&users).Error
	return users, err
}

// IssueEmailConfirmation builds the confirmation link. Delivery is the
// mail provider's job; the link is logged for it to pick up.
func (s *AuthService) IssueEmailConfirmation(user *models.User) error {
	token, err := utils.GeneratePurposeToken(user.ID, user.Role, utils.PurposeConfirm, confirmTokenTTL)
	if err != nil {
		return err
	}
	link := s.baseURL + "/auth/confirm?token=" + url.QueryEscape(token)
	utils.InfoLogger.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).
		Debugf("Email confirmation link: %s", link)
	return nil
}

// ConfirmEmail marks the address behind token as confirmed. Confirming twice
// keeps the first timestamp.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (*models.User, error) {
	claims, err := utils.ParsePurposeToken(token, utils.PurposeConfirm)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.Profile(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.EmailConfirmedAt == nil {
		now := time.Now()
		if err := s.db.WithContext(ctx).Model(user).Update("email_confirmed_at", now).Error; err != nil {
			return nil, err
		}
		user.EmailConfirmedAt = &now
	}
	return user, nil
}

// IssueLoginLink creates a short-lived sign-in link for email. Unknown addresses
// get no link and no error, so the endpoint does not reveal accounts.
func (s *AuthService) IssueLoginLink(ctx context.Context, email, next string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	code, err := utils.GeneratePurposeToken(user.ID, user.Role, utils.PurposeLogin, loginCodeTTL)
	if err != nil {
		return "", err
	}
	q := url.Values{"code": {code}}
	if next != "" {
		q.Set("next", next)
	}
	link := s.baseURL + "/auth/callback?" + q.Encode()
	utils.InfoLogger.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).
		Debugf("Login link: %s", link)
	return link, nil
}

// ExchangeLoginCode trades a login-link code for an access token. Following a
// link proves ownership of the address, so it also confirms it.
func (s *AuthService) ExchangeLoginCode(ctx context.Context, code string) (string, *models.User, error) {
	claims, err := utils.ParsePurposeToken(code, utils.PurposeLogin)
	if err != nil {
		return "", nil, ErrUnauthorized
	}
	user, err := s.Profile(ctx, claims.UserID)
	if err != nil {
		return "", nil, err
	}
	if user.EmailConfirmedAt == nil {
		now := time.Now()
		if err := s.db.WithContext(ctx).Model(user).Update("email_confirmed_at", now).Error; err != nil {
			return "", nil, err
		}
		user.EmailConfirmedAt = &now
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
