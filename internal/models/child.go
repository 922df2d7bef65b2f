package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Child is a single child profile stored in MongoDB.
type Child struct {
	ID        primitive.ObjectID `json:"id"         bson:"_id,omitempty"`
	Name      string             `json:"name"       bson:"name"`
	Age       int                `json:"age"        bson:"age"`
	Email     string             `json:"email"      bson:"email"`
	Password  string             `json:"-"          bson:"password,omitempty"` // never serialize
	Images    []string           `json:"images"     bson:"images"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateRequest is the JSON body for PATCH /api/children/{id}.
// Only name and age may be changed after creation.
type UpdateRequest struct {
	Name *string `json:"name"`
	Age  *int    `json:"age"`
}

const (
	MinAge            = 0
	MaxAge            = 18
	MinPasswordLength = 6

	bcryptCost = 12
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// ErrValidation marks input that failed draft or update validation.
var ErrValidation = errors.New("validation failed")

// NormalizeEmail lowercases and trims an email before validation or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateDraft checks a profile draft before persistence. It is a pure
// function: the caller normalizes the email first and hashes the password
// afterwards.
func ValidateDraft(name string, age int, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if age < MinAge || age > MaxAge {
		return fmt.Errorf("%w: age must be between %d and %d", ErrValidation, MinAge, MaxAge)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	return nil
}

// ValidateUpdate checks a partial update. At least one field must be present.
func ValidateUpdate(req UpdateRequest) error {
	if req.Name == nil && req.Age == nil {
		return fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	if req.Age != nil && (*req.Age < MinAge || *req.Age > MaxAge) {
		return fmt.Errorf("%w: age must be between %d and %d", ErrValidation, MinAge, MaxAge)
	}
	return nil
}

// HashPassword is the explicit hashing step applied to a draft before it is
// handed to the store. Hashing is never a side effect of saving.
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares a candidate password against the stored hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
