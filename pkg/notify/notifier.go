package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/vaultgate/vaultgate/pkg/access"
)

// Notifier sends transactional email
type Notifier interface {
	SendInviteEmail(ctx context.Context, email, inviteUID string, role access.Role) error
	SendVerificationEmail(ctx context.Context, email, verificationUID string) error
}

// LogNotifier writes notifications to the log instead of sending them.
// Used in development and as the fallback when no mailer is configured.
type LogNotifier struct {
	log *logrus.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendInviteEmail(ctx context.Context, email, inviteUID string, role access.Role) error {
	n.log.WithFields(logrus.Fields{
		"email":      email,
		"invite_uid": inviteUID,
		"role":       string(role),
	}).Info("invite email (log only)")
	return nil
}

func (n *LogNotifier) SendVerificationEmail(ctx context.Context, email, verificationUID string) error {
	n.log.WithFields(logrus.Fields{
		"email":            email,
		"verification_uid": verificationUID,
	}).Info("verification email (log only)")
	return nil
}
