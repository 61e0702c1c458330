package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/taskhive/taskhive-api/internal/config"
	"github.com/taskhive/taskhive-api/internal/logging"
)

// Service sends one-time code mails over SMTP. It implements
// auth.CodeMailer: the accepted slice it returns lists the recipients the
// transport took responsibility for, and stays empty on failure.
type Service struct {
	cfg    config.EmailConfig
	logger *logging.Logger

	// send is swappable in tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewService(cfg config.EmailConfig, logger *logging.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
		send:   smtp.SendMail,
	}
}

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>Verify your email</h2>
  <p>Use the code below to verify your TaskHive account. It is valid for 5 minutes.</p>
  <p style="font-size: 32px; font-weight: bold; letter-spacing: 8px;">{{.Code}}</p>
  <p>If you did not request this, you can safely ignore this email.</p>
</body>
</html>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>Reset your password</h2>
  <p>Use the code below to reset your TaskHive password. It is valid for 5 minutes.</p>
  <p style="font-size: 32px; font-weight: bold; letter-spacing: 8px;">{{.Code}}</p>
  <p>If you did not request a password reset, you can safely ignore this email.</p>
</body>
</html>`))

// SendVerificationCode mails an account verification code.
func (s *Service) SendVerificationCode(ctx context.Context, toEmail, code string) ([]string, error) {
	return s.sendCode(ctx, toEmail, "Verify your email", verificationTemplate, code)
}

// SendResetCode mails a password reset code.
func (s *Service) SendResetCode(ctx context.Context, toEmail, code string) ([]string, error) {
	return s.sendCode(ctx, toEmail, "Reset your password", resetTemplate, code)
}

func (s *Service) sendCode(ctx context.Context, toEmail, subject string, tmpl *template.Template, code string) ([]string, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, struct{ Code string }{Code: code}); err != nil {
		return nil, fmt.Errorf("render mail body: %w", err)
	}

	msg := buildMessage(s.cfg.FromAddress, toEmail, subject, body.String())

	// smtp.SendMail blocks; honor cancellation before dialing at least.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	if err := s.send(addr, auth, s.cfg.FromAddress, []string{toEmail}, msg); err != nil {
		s.logger.Warn("smtp delivery failed", "to", toEmail, "error", err.Error())
		return nil, fmt.Errorf("send mail: %w", err)
	}

	return []string{toEmail}, nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.Bytes()
}
