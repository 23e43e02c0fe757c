package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/KinuGra/tosho-2509-back/internal/config"
)

// Mailer delivers a verification code to a recipient.
type Mailer interface {
	Deliver(ctx context.Context, to, code string) error
}

// New builds the mailer selected by cfg.Backend.
func New(cfg config.MailConfig, logger *zap.Logger) (Mailer, error) {
	switch cfg.Backend {
	case config.MailBackendLog:
		return NewLogMailer(logger), nil
	case config.MailBackendSMTP:
		return NewSMTPMailer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown mail backend %q", cfg.Backend)
	}
}

// LogMailer writes codes to the service log instead of sending mail.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer returns a development mailbox.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mailbox")}
}

// Deliver logs the code at info level.
func (m *LogMailer) Deliver(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("verification code", zap.String("to", to), zap.String("code", code))
	return nil
}
