package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InvitesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildgate_invites_issued_total",
		Help: "Total number of invite tokens issued",
	}, []string{"role"})

	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildgate_redemptions_total",
		Help: "Total number of redemption attempts by outcome",
	}, []string{"outcome"})

	InviteEmails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildgate_invite_emails_total",
		Help: "Total number of invite emails by dispatch status",
	}, []string{"status"})

	TokensPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guildgate_tokens_purged_total",
		Help: "Total number of expired tokens removed by cleanup sweeps",
	})
)
