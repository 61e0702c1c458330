package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive-api/internal/config"
	"github.com/taskhive/taskhive-api/internal/logging"
)

func newTestService() (*Service, *sentMail) {
	svc := NewService(config.EmailConfig{
		SMTPHost:    "smtp.example.com",
		SMTPPort:    "587",
		SMTPUser:    "mailer",
		FromAddress: "noreply@taskhive.dev",
	}, logging.NewLogger(true))

	sent := &sentMail{}
	svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent.addr = addr
		sent.from = from
		sent.to = to
		sent.msg = string(msg)
		return sent.err
	}
	return svc, sent
}

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
	err  error
}

func TestSendVerificationCode(t *testing.T) {
	svc, sent := newTestService()

	accepted, err := svc.SendVerificationCode(context.Background(), "alice@example.com", "042137")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, accepted)

	assert.Equal(t, "smtp.example.com:587", sent.addr)
	assert.Equal(t, "noreply@taskhive.dev", sent.from)
	assert.Equal(t, []string{"alice@example.com"}, sent.to)
	assert.Contains(t, sent.msg, "Subject: Verify your email")
	assert.Contains(t, sent.msg, "042137")
	assert.Contains(t, sent.msg, "valid for 5 minutes")
	assert.Contains(t, sent.msg, "Content-Type: text/html")
}

func TestSendResetCode(t *testing.T) {
	svc, sent := newTestService()

	accepted, err := svc.SendResetCode(context.Background(), "bob@example.com", "734012")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@example.com"}, accepted)
	assert.Contains(t, sent.msg, "Subject: Reset your password")
	assert.Contains(t, sent.msg, "734012")
}

func TestSendFailureReturnsNoAccepted(t *testing.T) {
	svc, sent := newTestService()
	sent.err = errors.New("connection refused")

	accepted, err := svc.SendVerificationCode(context.Background(), "alice@example.com", "042137")
	assert.Error(t, err)
	assert.Empty(t, accepted)
}

func TestSendHonorsCancelledContext(t *testing.T) {
	svc, _ := newTestService()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.SendVerificationCode(ctx, "alice@example.com", "042137")
	assert.ErrorIs(t, err, context.Canceled)
}
