// Package mail implements the notification dispatch collaborators for the
// invite issuer: SendGrid for API-based delivery and plain SMTP as the
// self-hosted alternative.
package mail

import (
	"context"
	"fmt"

	"github.com/bitshala/guildgate/internal/gate/service"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridMailer delivers invitations through the SendGrid v3 API.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

func NewSendGridMailer(apiKey, fromName, fromEmail string) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, inv service.Invitation) error {
	subject, html, err := renderWelcome(inv)
	if err != nil {
		return err
	}

	from := sgmail.NewEmail(m.fromName, m.fromEmail)
	to := sgmail.NewEmail(inv.Name, inv.Email)
	msg := sgmail.NewSingleEmail(from, subject, to, "", html)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
