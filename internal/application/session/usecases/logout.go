package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/happy-observatory/observatory/internal/shared/errors"
	"github.com/happy-observatory/observatory/internal/shared/logger"
)

type LogoutCommand struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
}

// LogoutUseCase revokes the presented token until its own expiry.
type LogoutUseCase struct {
	revoker TokenRevoker
	logger  logger.Interface
}

func NewLogoutUseCase(revoker TokenRevoker, logger logger.Interface) *LogoutUseCase {
	return &LogoutUseCase{
		revoker: revoker,
		logger:  logger,
	}
}

func (uc *LogoutUseCase) Execute(ctx context.Context, cmd LogoutCommand) error {
	if cmd.JTI == "" {
		return errors.NewValidationError("token has no id")
	}

	if err := uc.revoker.Revoke(ctx, cmd.JTI, cmd.ExpiresAt); err != nil {
		uc.logger.Errorw("failed to revoke token", "jti", cmd.JTI, "error", err)
		return fmt.Errorf("failed to logout: %w", err)
	}

	uc.logger.Infow("user logged out", "user_id", cmd.UserID, "jti", cmd.JTI, "revoked_until", cmd.ExpiresAt)
	return nil
}
