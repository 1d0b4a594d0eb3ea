package engine

import (
	"github.com/jonathanwhen/chaperone/moderation/ledger"
	"github.com/jonathanwhen/chaperone/moderation/session"
)

// Host-supplied policy and wiring. Zero values get sensible defaults from
// DefaultConfig; thresholds and channel naming are deployment policy, never
// hardcoded in the flow logic.
type Config struct {
	// moderator channel per guild: guild id -> channel id
	ModChannels map[string]string
	// optional senior-review channel per guild; escalations fall back to the
	// moderator channel when absent
	EscalationChannels map[string]string
	// name of the moderator channel, used to recognize moderator replies
	ModChannelName string
	// name of the senior-review channel
	EscalationChannelName string

	// classifier confidence required before the automated scanner opens a
	// case on its own
	AutoReportThreshold float64

	// offense-count thresholds driving moderator recommendations
	Policy ledger.Policy

	// whether dismissing an escalated case counts against the reporter
	CountFalseReportOnDismissal bool

	// report interview configuration (mode, optional steps)
	Session session.Config
}

func DefaultConfig() Config {
	return Config{
		ModChannels:                 map[string]string{},
		EscalationChannels:          map[string]string{},
		ModChannelName:              "mod",
		EscalationChannelName:       "escalation",
		AutoReportThreshold:         0.8,
		Policy:                      ledger.DefaultPolicy(),
		CountFalseReportOnDismissal: true,
		Session: session.Config{
			Mode:            session.ModeStatic,
			CollectFreeText: true,
		},
	}
}
