package usecases

import (
	"context"
	"time"

	"github.com/happy-observatory/observatory/internal/infrastructure/auth"
)

type TokenIssuer interface {
	Generate(userID, role string) (*auth.IssuedToken, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}

type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}
