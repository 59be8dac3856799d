package service

import "context"

// Invitation carries everything a Mailer needs to compose the welcome email.
type Invitation struct {
	Name       string
	Email      string
	CohortName string
	InviteURL  string
}

// Mailer dispatches invite notifications. Implementations live in
// internal/gate/mail; NopMailer stands in when email is unconfigured, making
// the notification step a no-op rather than a branch in the issuance flow.
type Mailer interface {
	Send(ctx context.Context, inv Invitation) error
}

// NopMailer discards every invitation and reports success.
type NopMailer struct{}

func (NopMailer) Send(ctx context.Context, inv Invitation) error { return nil }
