package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/obada/child-profiles-backend/internal/models"
	"github.com/obada/child-profiles-backend/internal/store"
)

var (
	// ErrMissingCredentials is returned when no identity field or no
	// password was supplied.
	ErrMissingCredentials = errors.New("please provide email/name and password")
	// ErrInvalidCredentials is returned for unknown profiles and wrong
	// passwords alike; callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("incorrect email/name or password")
)

// ChildStore defines the lookup the verifier needs.
type ChildStore interface {
	FindByNameOrEmail(ctx context.Context, name, email string) (*models.Child, error)
}

// Verifier validates login attempts against stored profiles. This service
// runs the password policy: a password is always required, and identity may
// be given as name or email.
type Verifier struct {
	children ChildStore
}

func NewVerifier(children ChildStore) *Verifier {
	return &Verifier{children: children}
}

// Verify checks the supplied credentials and returns the matching profile
// with its password hash stripped.
func (v *Verifier) Verify(ctx context.Context, name, email, password string) (*models.Child, error) {
	name = strings.TrimSpace(name)
	email = models.NormalizeEmail(email)
	if (name == "" && email == "") || password == "" {
		return nil, ErrMissingCredentials
	}

	child, err := v.children.FindByNameOrEmail(ctx, name, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !models.CheckPassword(child.Password, password) {
		return nil, ErrInvalidCredentials
	}

	child.Password = ""
	return child, nil
}
