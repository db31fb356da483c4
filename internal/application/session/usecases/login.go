package usecases

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/happy-observatory/observatory/internal/shared/config"
	"github.com/happy-observatory/observatory/internal/shared/errors"
	"github.com/happy-observatory/observatory/internal/shared/logger"
)

const defaultRole = "admin"

type LoginCommand struct {
	Username  string
	Password  string
	IPAddress string
}

type LoginResult struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
	Username  string
	Role      string
}

// LoginUseCase checks a username and password against the configured
// operators and issues an access token.
type LoginUseCase struct {
	users     []config.UserConfig
	hasher    PasswordHasher
	issuer    TokenIssuer
	dummyHash string
	logger    logger.Interface
}

func NewLoginUseCase(users []config.UserConfig, hasher PasswordHasher, issuer TokenIssuer, logger logger.Interface) (*LoginUseCase, error) {
	// Unknown usernames are checked against this hash so they cost as much as a wrong password.
	dummyHash, err := hasher.Hash("observatory-unknown-user")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare login use case: %w", err)
	}

	return &LoginUseCase{
		users:     users,
		hasher:    hasher,
		issuer:    issuer,
		dummyHash: dummyHash,
		logger:    logger,
	}, nil
}

func (uc *LoginUseCase) Execute(_ context.Context, cmd LoginCommand) (*LoginResult, error) {
	user, found := uc.findUser(cmd.Username)

	hash := uc.dummyHash
	if found {
		hash = user.PasswordHash
	}
	verifyErr := uc.hasher.Verify(cmd.Password, hash)

	if !found || verifyErr != nil {
		uc.logger.Warnw("login failed",
			"username", cmd.Username,
			"ip", cmd.IPAddress,
		)
		return nil, errors.NewInvalidCredentialsError()
	}

	role := user.Role
	if role == "" {
		role = defaultRole
	}

	issued, err := uc.issuer.Generate(user.Username, role)
	if err != nil {
		uc.logger.Errorw("failed to issue access token", "username", user.Username, "error", err)
		return nil, errors.NewInternalError("failed to issue access token")
	}

	uc.logger.Infow("user logged in", "username", user.Username, "jti", issued.JTI, "ip", cmd.IPAddress)

	return &LoginResult{
		Token:     issued.Token,
		JTI:       issued.JTI,
		ExpiresAt: issued.ExpiresAt,
		Username:  user.Username,
		Role:      role,
	}, nil
}

func (uc *LoginUseCase) findUser(username string) (config.UserConfig, bool) {
	var match config.UserConfig
	found := false
	for _, u := range uc.users {
		// Scan every entry so the lookup time does not depend on the position.
		if subtle.ConstantTimeCompare([]byte(u.Username), []byte(username)) == 1 && !found {
			match = u
			found = true
		}
	}
	return match, found
}
