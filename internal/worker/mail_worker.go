package worker

import (
	"context"
	"fmt"
	"log/slog"

	"jobfund/internal/amqp"
)

// Mailer delivers a rendered email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MailWorker turns queued verification messages into outgoing emails.
type MailWorker struct {
	mailer  Mailer
	baseURL string
}

func NewMailWorker(mailer Mailer, baseURL string) *MailWorker {
	return &MailWorker{
		mailer:  mailer,
		baseURL: baseURL,
	}
}

// HandleVerificationMessage processes a single verification email message
// from AMQP. Returning an error requeues the delivery.
func (w *MailWorker) HandleVerificationMessage(ctx context.Context, msg *amqp.VerificationEmailMessage) error {
	slog.InfoContext(ctx, "Processing verification email message",
		"user_id", msg.UserID)

	link := fmt.Sprintf("%s/api/verify-email?token=%s", w.baseURL, msg.Token)
	body := fmt.Sprintf(
		"Welcome!\n\nPlease confirm your email address by opening the link below:\n\n%s\n\nIf you did not create an account, ignore this message.\n",
		link,
	)

	if err := w.mailer.Send(ctx, msg.Email, "Confirm your email address", body); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	slog.InfoContext(ctx, "Verification email sent",
		"user_id", msg.UserID)
	return nil
}

// LogMailer writes emails to the log instead of sending them. Used in
// development where no SMTP relay is available.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	slog.InfoContext(ctx, "Email delivery skipped (log mailer)",
		"to", to,
		"subject", subject,
		"body", body)
	return nil
}
