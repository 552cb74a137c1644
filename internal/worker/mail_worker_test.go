package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"jobfund/internal/amqp"
)

type captureMailer struct {
	to      string
	subject string
	body    string
	fail    error
}

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.fail != nil {
		return m.fail
	}
	m.to = to
	m.subject = subject
	m.body = body
	return nil
}

func TestHandleVerificationMessage(t *testing.T) {
	mailer := &captureMailer{}
	w := NewMailWorker(mailer, "https://jobfund.example.com")

	msg := amqp.NewVerificationEmailMessage(7, "user@example.com", "tok-123")
	if err := w.HandleVerificationMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleVerificationMessage: %v", err)
	}

	if mailer.to != "user@example.com" {
		t.Errorf("expected recipient user@example.com, got %s", mailer.to)
	}
	if !strings.Contains(mailer.body, "https://jobfund.example.com/api/verify-email?token=tok-123") {
		t.Errorf("expected verification link in body, got %q", mailer.body)
	}
}

func TestHandleVerificationMessageSendFailure(t *testing.T) {
	mailer := &captureMailer{fail: errors.New("relay down")}
	w := NewMailWorker(mailer, "https://jobfund.example.com")

	msg := amqp.NewVerificationEmailMessage(7, "user@example.com", "tok-123")
	if err := w.HandleVerificationMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error when mailer fails")
	}
}
