package notification

import (
	"context"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// SMTPConfig configures the mail relay.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
}

// SMTPSender emails notifications through an SMTP relay.
type SMTPSender struct {
	config SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPSender builds a sender for the relay.
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(n.Recipients) == 0 {
		return nil
	}
	m := buildMessage(s.config.FromAddress, n)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func buildMessage(from string, n Notification) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", n.Recipients...)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", plainBody(n))
	m.AddAlternative("text/html", htmlBody(n))
	return m
}

func plainBody(n Notification) string {
	return fmt.Sprintf("Ticket %s\n\n%s\n", n.TicketNumber, n.Message)
}

// htmlBody embeds the already-sanitized comment markup as is.
func htmlBody(n Notification) string {
	return fmt.Sprintf(`<html>
<body>
	<h3>Ticket %s</h3>
	<div>%s</div>
</body>
</html>`, html.EscapeString(n.TicketNumber), n.Message)
}
