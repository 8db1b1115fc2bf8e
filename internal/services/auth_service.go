package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
)

// AuthService handles owner authentication.
type AuthService struct {
	owners     repositories.OwnerRepository
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(owners repositories.OwnerRepository, jwtSecret string) *AuthService {
	return &AuthService{
		owners:     owners,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
	}
}

// RegisterOwner hashes the password and stores a new owner account.
func (s *AuthService) RegisterOwner(owner *models.Owner) error {
	if existing, err := s.owners.GetByEmail(owner.Email); err == nil && existing != nil {
		return fmt.Errorf("%w: %s", ErrEmailTaken, owner.Email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(owner.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	owner.Password = string(hashedPassword)

	if err := s.owners.Create(owner); err != nil {
		return fmt.Errorf("failed to register owner: %w", err)
	}
	return nil
}

// Login checks the credentials and returns a signed token with the owner.
// Unknown emails and wrong passwords produce the same error.
func (s *AuthService) Login(email, password string) (string, *models.Owner, error) {
	owner, err := s.owners.GetByEmail(strings.TrimSpace(email))
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(owner.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(owner)
	if err != nil {
		return "", nil, err
	}
	return token, owner, nil
}

func (s *AuthService) issueToken(owner *models.Owner) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": owner.ID,
		"email":   owner.Email,
		"exp":     now.Add(s.tokenDurat).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.WithError(err).Debug("Token validation error")
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if id, _ := claims["user_id"].(string); id == "" {
			return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
		}
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// Owner loads the account behind a validated token.
func (s *AuthService) Owner(id string) (*models.Owner, error) {
	owner, err := s.owners.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner: %w", err)
	}
	return owner, nil
}

// SetPushToken stores the device push token of an owner.
func (s *AuthService) SetPushToken(ownerID, token string) error {
	if err := s.owners.SetPushToken(ownerID, token); err != nil {
		return fmt.Errorf("failed to register push token: %w", err)
	}
	return nil
}
