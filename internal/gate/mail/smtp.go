package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/bitshala/guildgate/internal/gate/service"
)

// SMTPMailer delivers invitations over plain SMTP with STARTTLS, for
// deployments that prefer their own relay over the SendGrid API.
type SMTPMailer struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

func (m *SMTPMailer) Send(ctx context.Context, inv service.Invitation) error {
	subject, html, err := renderWelcome(inv)
	if err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.FromName, m.FromEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", inv.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)

	// net/smtp has no context support; the dial inherits the OS-level
	// connect timeout and the caller treats a slow relay as a dispatch
	// failure, never as an issuance failure.
	if err := smtp.SendMail(addr, auth, m.FromEmail, []string{inv.Email}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
