package service

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/claim-approval-service/internal/config"
)

// Notification types accepted by the email endpoint.
const (
	NotificationClaimUpdate       = "claim_update"
	NotificationPolicyRenewal     = "policy_renewal"
	NotificationPaymentReminder   = "payment_reminder"
	NotificationGeneral           = "general"
	NotificationClaimVerification = "claim_verification"
)

var notificationTypes = map[string]struct{}{
	NotificationClaimUpdate:       {},
	NotificationPolicyRenewal:     {},
	NotificationPaymentReminder:   {},
	NotificationGeneral:           {},
	NotificationClaimVerification: {},
}

// Email is one outbound customer notification. Message is an HTML fragment.
type Email struct {
	To               string
	Subject          string
	Message          string
	NotificationType string
}

// EmailResult reports the delivery mode.
type EmailResult struct {
	Recipient string
	DemoMode  bool
}

// Mailer sends customer emails.
type Mailer interface {
	Send(ctx context.Context, email Email) (*EmailResult, error)
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService delivers notifications over SMTP, or only logs them in demo mode.
type EmailService struct {
	cfg      config.SMTPConfig
	logger   *zap.Logger
	sendMail sendMailFunc
}

// NewEmailService constructs the service.
func NewEmailService(cfg config.SMTPConfig, logger *zap.Logger) *EmailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailService{
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "email")),
		sendMail: smtp.SendMail,
	}
}

// Send validates and delivers an email.
func (s *EmailService) Send(ctx context.Context, email Email) (*EmailResult, error) {
	email.To = strings.TrimSpace(email.To)
	if email.To == "" || !strings.Contains(email.To, "@") || strings.ContainsAny(email.To, "\r\n") {
		return nil, fmt.Errorf("%w: invalid recipient %q", ErrInvalidInput, email.To)
	}
	if strings.TrimSpace(email.Subject) == "" {
		return nil, fmt.Errorf("%w: subject required", ErrInvalidInput)
	}
	if strings.ContainsAny(email.Subject, "\r\n") {
		return nil, fmt.Errorf("%w: subject must be a single line", ErrInvalidInput)
	}
	if email.NotificationType == "" {
		email.NotificationType = NotificationGeneral
	}
	if _, ok := notificationTypes[email.NotificationType]; !ok {
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, email.NotificationType)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.cfg.DemoMode() {
		s.logger.Info("email notification (demo mode, not sent)",
			zap.String("to", email.To),
			zap.String("subject", email.Subject),
			zap.String("notification_type", email.NotificationType))
		return &EmailResult{Recipient: email.To, DemoMode: true}, nil
	}

	addr := net.JoinHostPort(s.cfg.Server, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.SenderEmail, s.cfg.SenderPassword, s.cfg.Server)
	if err := s.sendMail(addr, auth, s.cfg.SenderEmail, []string{email.To}, s.compose(email)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}
	s.logger.Info("email notification sent",
		zap.String("to", email.To),
		zap.String("notification_type", email.NotificationType))
	return &EmailResult{Recipient: email.To}, nil
}

func (s *EmailService) compose(email Email) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.SenderEmail)
	fmt.Fprintf(&b, "To: %s\r\n", email.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", email.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(wrapEmailBody(email.NotificationType, email.Message))
	return []byte(b.String())
}

func wrapEmailBody(notificationType, message string) string {
	return fmt.Sprintf(`<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <h2>Insurance Notification</h2>
      <p><strong>Notification Type:</strong> %s</p>
      <hr>
      <div style="margin: 20px 0;">%s</div>
      <hr>
      <p style="color: #666; font-size: 12px;">This is an automated notification from your insurance company. Please do not reply to this email.</p>
    </div>
  </body>
</html>`, humanize(notificationType), message)
}

// humanize turns snake_case into Title Case words.
func humanize(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
