package services_test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/services"

	"github.com/dgrijalva/jwt-go"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockOwnerRepository is a mock implementation of repositories.OwnerRepository
type MockOwnerRepository struct {
	mock.Mock
}

func (m *MockOwnerRepository) Create(owner *models.Owner) error {
	args := m.Called(owner)
	return args.Error(0)
}

func (m *MockOwnerRepository) GetByEmail(email string) (*models.Owner, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Owner), args.Error(1)
}

func (m *MockOwnerRepository) GetByID(id string) (*models.Owner, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Owner), args.Error(1)
}

func (m *MockOwnerRepository) SetPushToken(id, token string) error {
	args := m.Called(id, token)
	return args.Error(0)
}

// TestMain is used to setup test environment
func TestMain(m *testing.M) {
	log.SetLevel(log.WarnLevel)
	code := m.Run()
	os.Exit(code)
}

func TestAuthService_RegisterOwner(t *testing.T) {
	mockRepo := new(MockOwnerRepository)
	authService := services.NewAuthService(mockRepo, "test_jwt_secret")

	owner := &models.Owner{Email: "chef@example.com", Password: "password123"}

	mockRepo.On("GetByEmail", owner.Email).Return(nil, fmt.Errorf("not found")).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.Owner")).Return(nil).Once()

	err := authService.RegisterOwner(owner)
	assert.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(owner.Password), []byte("password123")), "password is stored hashed")
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("GetByEmail", owner.Email).Return(&models.Owner{ID: "1"}, nil).Once()
	err = authService.RegisterOwner(&models.Owner{Email: owner.Email, Password: "x"})
	assert.ErrorIs(t, err, services.ErrEmailTaken)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Login(t *testing.T) {
	mockRepo := new(MockOwnerRepository)
	testJWTSecret := "test_jwt_secret"
	authService := services.NewAuthService(mockRepo, testJWTSecret)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	owner := &models.Owner{ID: "owner-123", Email: "chef@example.com", Password: string(hashedPassword)}

	// Test successful login
	mockRepo.On("GetByEmail", owner.Email).Return(owner, nil).Once()
	token, got, err := authService.Login(" chef@example.com ", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, owner.ID, got.ID)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	assert.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, owner.ID, claims["user_id"])
	assert.Equal(t, owner.Email, claims["email"])
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByEmail", owner.Email).Return(owner, nil).Once()
	_, _, err = authService.Login(owner.Email, "wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	// Test invalid credentials (unknown email)
	mockRepo.On("GetByEmail", "ghost@example.com").Return(nil, fmt.Errorf("owner with email ghost@example.com not found")).Once()
	_, _, err = authService.Login("ghost@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	mockRepo := new(MockOwnerRepository)
	testJWTSecret := "test_jwt_secret"
	authService := services.NewAuthService(mockRepo, testJWTSecret)

	sign := func(claims jwt.MapClaims, secret string) string {
		s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		return s
	}

	// Test valid token
	claims, err := authService.ValidateToken(sign(jwt.MapClaims{
		"user_id": "owner-123",
		"exp":     jwt.TimeFunc().Add(time.Hour).Unix(),
	}, testJWTSecret))
	assert.NoError(t, err)
	assert.Equal(t, "owner-123", claims["user_id"])

	// Test malformed token
	_, err = authService.ValidateToken("invalid.token.string")
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Test wrong secret
	_, err = authService.ValidateToken(sign(jwt.MapClaims{"user_id": "owner-123"}, "other_secret"))
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Test expired token
	_, err = authService.ValidateToken(sign(jwt.MapClaims{
		"user_id": "owner-123",
		"exp":     jwt.TimeFunc().Add(-time.Hour).Unix(),
	}, testJWTSecret))
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Test token without a subject
	_, err = authService.ValidateToken(sign(jwt.MapClaims{"exp": jwt.TimeFunc().Add(time.Hour).Unix()}, testJWTSecret))
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestAuthService_SetPushToken(t *testing.T) {
	mockRepo := new(MockOwnerRepository)
	authService := services.NewAuthService(mockRepo, "s")

	mockRepo.On("SetPushToken", "owner-1", "push-1").Return(nil).Once()
	assert.NoError(t, authService.SetPushToken("owner-1", "push-1"))

	mockRepo.On("SetPushToken", "ghost", "push-1").Return(fmt.Errorf("owner with ID ghost not found")).Once()
	assert.Error(t, authService.SetPushToken("ghost", "push-1"))
	mockRepo.AssertExpectations(t)
}
