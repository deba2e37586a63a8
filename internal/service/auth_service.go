package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type officerAuthRepository interface {
	FindByID(ctx context.Context, id string) (*models.Officer, error)
	FindCredential(ctx context.Context, username string) (*models.OfficerCredential, error)
	TouchLogin(ctx context.Context, officerID string, at time.Time) error
}

// AuthConfig defines configuration for officer authentication.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService authenticates officers and resolves their tokens.
type AuthService struct {
	repo      officerAuthRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
	compare   func(hash, password []byte) error
}

// unknownUserHash is compared against on unknown usernames so both failure
// paths cost one bcrypt comparison.
var unknownUserHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("unknown-officer"), bcrypt.DefaultCost)
	return hash
})

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo officerAuthRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 8 * time.Hour
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config, now: time.Now, compare: bcrypt.CompareHashAndPassword}
}

// Login checks the officer's password and issues an access token.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*models.LoginResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	cred, err := s.repo.FindCredential(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = s.compare(unknownUserHash(), []byte(req.Password))
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch credentials")
	}
	if err := s.compare([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	officer, err := s.repo.FindByID(ctx, cred.OfficerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	if !officer.IsActive {
		return nil, appErrors.ErrInactiveAccount
	}

	token, err := s.generateAccessToken(officer)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	if err := s.repo.TouchLogin(ctx, officer.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.String("officer_id", officer.ID), zap.Error(err))
	}
	s.logger.Info("officer logged in", zap.String("officer_id", officer.ID), zap.Int("level", int(officer.Level)))

	return &models.LoginResult{
		Success:   true,
		Token:     token,
		ExpiresIn: int64(s.config.AccessTokenExpiry.Seconds()),
		Officer:   officer,
	}, nil
}

// CurrentOfficer resolves the officer behind a validated token.
func (s *AuthService) CurrentOfficer(ctx context.Context, officerID string) (*models.Officer, error) {
	officer, err := s.repo.FindByID(ctx, officerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "officer no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	if !officer.IsActive {
		return nil, appErrors.ErrInactiveAccount
	}
	return officer, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.OfficerClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.OfficerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.OfficerClaims)
	if !ok || !token.Valid || claims.OfficerID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(officer *models.Officer) (string, error) {
	issuedAt := s.now().UTC()
	claims := &models.OfficerClaims{
		OfficerID: officer.ID,
		Level:     officer.Level,
		Role:      officer.Role,
		Name:      officer.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   officer.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

// HashPassword produces the bcrypt hash stored in officer_credentials.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
