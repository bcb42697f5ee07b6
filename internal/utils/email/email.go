package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/jmorales-gt/crediventa/internal/config"
	"github.com/jmorales-gt/crediventa/internal/service"
)

// Sender delivers notifications over SMTP.
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender.
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// Notify sends one email per recipient. Delivery problems are logged and
// swallowed; a notification must never fail the mutation it describes.
func (s *Sender) Notify(ctx context.Context, n service.Notification) {
	for _, u := range n.Recipients {
		if u.Email == "" {
			continue
		}
		if err := s.send(u.Email, u.Name, n); err != nil {
			s.logger.Errorf("Failed to send email to %s: %v", u.Email, err)
			continue
		}
		s.logger.Infof("Email sent to %s: %s", u.Email, n.Title)
	}
}

func (s *Sender) send(to, username string, n service.Notification) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("[%s] %s", n.Severity, n.Title)

	body := fmt.Sprintf("Dear %s,\n\n%s\n", username, n.Message)
	for k, v := range n.Metadata {
		body += fmt.Sprintf("  %s: %v\n", k, v)
	}
	body += "\nBest regards,\nCrediventa"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
