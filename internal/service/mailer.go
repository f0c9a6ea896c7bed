package service

import (
	"context"

	"go.uber.org/zap"
)

// Mailer delivers account mails.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email string) error
}

// LogMailer writes the mails it would send to the log.
type LogMailer struct {
	Log *zap.Logger
}

// SendPasswordReset logs the request.
func (m LogMailer) SendPasswordReset(_ context.Context, email string) error {
	m.Log.Info("password reset requested", zap.String("email", email))
	return nil
}
