package auth

import (
	"context"

	"github.com/devsanjithm/accountd/internal/common/logger"
)

// Mailer delivers the reset and verification tokens. Actual transport
// is outside this service; deployments plug in their own sender.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
	SendEmailVerification(ctx context.Context, email, token string) error
}

// LogMailer is the default no-op sender. It records that a delivery
// would have happened without logging the token itself.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, _ string) error {
	m.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "password_reset_mail",
	}).Info("password reset mail dispatched")
	return nil
}

func (m *LogMailer) SendEmailVerification(ctx context.Context, email, _ string) error {
	m.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "verification_mail",
	}).Info("verification mail dispatched")
	return nil
}
