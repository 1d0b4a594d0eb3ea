package engine

import (
	"context"
	"log/slog"

	"github.com/jonathanwhen/chaperone/moderation/casestore"
	"github.com/jonathanwhen/chaperone/moderation/classify"
	"github.com/jonathanwhen/chaperone/moderation/escalation"
	"github.com/jonathanwhen/chaperone/moderation/event"
	"github.com/jonathanwhen/chaperone/moderation/infractions"
	"github.com/jonathanwhen/chaperone/moderation/ledger"
	"github.com/jonathanwhen/chaperone/moderation/session"
	"github.com/jonathanwhen/chaperone/moderation/setstore"
)

// In-memory ContentResolver for tests. Keyed by message identifier.
type MockResolver struct {
	Messages map[string]*event.Content
}

func NewMockResolver() *MockResolver {
	return &MockResolver{Messages: make(map[string]*event.Content)}
}

func (r *MockResolver) Insert(c event.Content) {
	r.Messages[c.Ref.MessageID] = &c
}

func (r *MockResolver) ResolveMessage(ctx context.Context, guildID, channelID, messageID string) (*event.Content, error) {
	c, ok := r.Messages[messageID]
	if !ok {
		return nil, session.ErrMessageNotFound
	}
	return c, nil
}

// Fully in-memory engine for tests: one guild ("101") with a moderator
// channel ("900") and an escalation channel ("901"), and a lexicon classifier
// whose term set contains "slur".
func EngineTestFixture() (*Engine, *MockResolver) {
	sets := setstore.NewMemSetStore()
	_ = sets.AddToSet(context.Background(), "flagged-terms", []string{"slur"})
	classifier := classify.NewAdapter(slog.Default(), &classify.LexiconDetector{Sets: sets, SetName: "flagged-terms"}, nil)

	cfg := DefaultConfig()
	cfg.ModChannels = map[string]string{"101": "900"}
	cfg.EscalationChannels = map[string]string{"101": "901"}

	resolver := NewMockResolver()
	eng := &Engine{
		Logger:      slog.Default(),
		Config:      cfg,
		Classifier:  classifier,
		Sessions:    session.NewTable(),
		Cases:       casestore.NewMemCaseStore(),
		Ledger:      ledger.NewMemLedger(),
		Escalations: escalation.NewTracker(),
		Infractions: infractions.DisabledStore{},
		Resolver:    resolver,
	}
	return eng, resolver
}
