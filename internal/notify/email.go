package notify

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/forestguard/internal/models"
)

// EmailConfig carries the SMTP settings for alert mail.
type EmailConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// EmailSender delivers alerts over SMTP.
type EmailSender struct {
	cfg    EmailConfig
	dialer *gomail.Dialer
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password),
	}
}

func (s *EmailSender) Send(a *models.Alert, recipient string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", fmt.Sprintf("Pest Alert [%s]: %s", a.Level, a.TargetArea))
	m.SetBody("text/plain", emailBody(a))
	return s.dialer.DialAndSend(m)
}

func emailBody(a *models.Alert) string {
	return fmt.Sprintf(`Area: %s
Pest: %s
Level: %s
Urgency: %s
Severity: %s
Message: %s
Instructions: %s
Time: %s
`, a.TargetArea, a.PestID, a.Level, a.Urgency, a.Severity,
		a.Message, a.Instructions, a.AlertTime.Format(time.RFC3339))
}
